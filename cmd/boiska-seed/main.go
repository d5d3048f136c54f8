// boiska-seed fills the database with demo reservations, the way a busy
// season looks: random bookings per ground and day, denser in the evening.
// Reservations go through the booking engine, so seeded data never
// overlaps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/booking"
	"github.com/pmiara/rezerwacja-boisk/internal/config"
	"github.com/pmiara/rezerwacja-boisk/internal/db"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/runtime"
	"github.com/pmiara/rezerwacja-boisk/internal/sequence"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
	"github.com/pmiara/rezerwacja-boisk/internal/storage/postgres"
)

var surnames = []string{
	"Nowak", "Kowalski", "Wiśniewski", "Wójcik", "Kowalczyk",
	"Kamiński", "Lewandowski", "Dąbrowski", "Zieliński", "Szymański",
	"Woźniak", "Kozłowski", "Jankowski", "Mazur", "Wojciechowski",
	"Kwiatkowski", "Krawczyk", "Kaczmarek", "Piotrowski", "Grabowski",
	"Zając", "Pawłowski", "Michalski", "Król", "Nowakowski",
	"Wieczorek", "Wróbel", "Jabłoński", "Dudek", "Adamczyk",
}

var mailNames = []string{
	"dyzio", "pogromca222", "ziutek0", "buziaczek", "rycerz666", "ahoj",
	"1typowy1", "kotlet14", "your.boss", "super.player", "thebest1",
	"professional", "porkchop", "pierogi", "exterminator45", "kuba92",
	"pioter22", "madzia96", "informatyk7", "h3ll0", "andrzej85",
}

var mailDomains = []string{
	"buziaczek.pl", "gmail.com", "hotmail.com", "example.com",
	"site.com", "onet.pl", "interia.pl", "wp.pl", "op.pl",
}

func main() {
	var (
		from      = flag.String("from", "", "first day to seed (YYYY-MM-DD, default today)")
		days      = flag.Int("days", 5, "number of days to seed")
		bootstrap = flag.Bool("bootstrap", false, "create a demo place with three grounds first")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	logger := runtime.NewLogger("boiska-seed")
	ctx := context.Background()

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		fatal(err.Error())
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		fatal("db connection failed: " + err.Error())
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		fatal("schema migration failed: " + err.Error())
	}

	start := time.Now().UTC()
	if *from != "" {
		start, err = time.Parse("2006-01-02", *from)
		if err != nil {
			fatal("invalid -from date: " + err.Error())
		}
	}
	start = model.Date(start.Year(), start.Month(), start.Day())
	if *days < 1 {
		fatal("-days must be at least 1")
	}

	store := postgres.NewStore(pool)
	svc := booking.NewService(store, logger)
	rng := rand.New(rand.NewSource(*seed))

	if *bootstrap {
		if err := bootstrapDemoPlace(ctx, store, logger); err != nil {
			fatal("bootstrap failed: " + err.Error())
		}
	}

	grounds, err := store.Grounds(ctx)
	if err != nil {
		fatal("listing grounds failed: " + err.Error())
	}
	if len(grounds) == 0 {
		fatal("no grounds to seed; run with -bootstrap or create grounds first")
	}

	total := 0
	for _, ground := range grounds {
		for d := 0; d < *days; d++ {
			day := start.AddDate(0, 0, d)
			total += seedDay(ctx, svc, rng, ground, day, logger)
		}
	}
	logger.Info("seeding done", "grounds", len(grounds), "days", *days, "reservations", total)
}

// seedDay walks a ground's open hours and books random slots. The later
// the hour, the likelier a booking, mirroring real evening demand.
func seedDay(ctx context.Context, svc *booking.Service, rng *rand.Rand, ground model.SportsGround, day time.Time, logger *slog.Logger) int {
	created := 0
	current := ground.Opening
	for current.Minutes() <= ground.Closing.Minutes()-60 {
		duration, ok := chooseDuration(rng, current)
		if !ok {
			current += 60
			continue
		}
		end := current + availability.Clock(duration)
		if end > ground.Closing {
			end = ground.Closing
		}

		res, err := svc.CreateReservation(ctx, booking.CreateRequest{
			GroundID:  ground.ID,
			Email:     mailNames[rng.Intn(len(mailNames))] + "@" + mailDomains[rng.Intn(len(mailDomains))],
			Surname:   surnames[rng.Intn(len(surnames))],
			EventDate: day,
			Start:     current,
			End:       end,
		})
		if err != nil {
			logger.Warn("seed reservation rejected", "ground", ground.LocalName(), "err", err)
			current = end
			continue
		}
		if _, err := svc.Accept(ctx, res.ID); err != nil {
			logger.Warn("seed accept failed", "reservation_id", res.ID, "err", err)
		}
		created++
		current = end
	}
	return created
}

func chooseDuration(rng *rand.Rand, start availability.Clock) (minutes int, ok bool) {
	if rng.Float64() > float64(start.Minutes()/60)/24 {
		return 0, false
	}
	minutes = 60
	if rng.Float64() < 0.5 {
		minutes += 60
	}
	if rng.Float64() < 0.5 {
		minutes += 30
	}
	return minutes, true
}

func bootstrapDemoPlace(ctx context.Context, store storage.Store, logger *slog.Logger) error {
	place := model.Place{
		Name:          "Poznań Rataje",
		Administrator: "admin",
		Description:   "Demo place seeded by boiska-seed.",
		PhoneNumber:   "123321123",
		City:          "Poznań",
		Street:        "Nowina",
	}
	if err := store.CreatePlace(ctx, place); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			logger.Info("demo place already exists", "place", place.Name)
			return nil
		}
		return err
	}

	allocator := sequence.NewAllocator(store, logger)
	for i := 0; i < 3; i++ {
		g, err := allocator.CreateGround(ctx, model.SportsGround{
			Place:   place.Name,
			Opening: availability.ClockOf(8, 0),
			Closing: availability.ClockOf(20, 0),
		})
		if err != nil {
			return err
		}
		logger.Info("created demo ground", "ground", g.LocalName())
	}
	return nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "boiska-seed:", msg)
	os.Exit(1)
}
