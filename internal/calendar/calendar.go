// Package calendar renders the month availability grid shown next to a
// place: one cell per day, classified by how reserved the place's grounds
// are on that day.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
	"github.com/pmiara/rezerwacja-boisk/internal/model"
	"github.com/pmiara/rezerwacja-boisk/internal/storage"
)

// InvalidMonthError is a caller-visible validation failure, surfaced by the
// surrounding app as "not found".
type InvalidMonthError struct {
	Month int
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("month %d out of range [1, 12]", e.Month)
}

// Aggregator computes a day's busy level across a set of grounds.
type Aggregator struct {
	store storage.Store
}

func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// BusyLevel sums every ground's open minutes and every accepted
// reservation's minutes on the given date, and classifies the ratio. No
// grounds (or no open hours) means an Empty day, never a division by zero.
func (a *Aggregator) BusyLevel(ctx context.Context, grounds []model.SportsGround, date time.Time) (availability.Level, error) {
	var busy, total int
	for _, g := range grounds {
		total += g.OpenMinutes()
		reservations, err := a.store.AcceptedReservations(ctx, g.ID, date)
		if err != nil {
			return availability.Empty, err
		}
		for _, r := range reservations {
			busy += r.Interval().Minutes()
		}
	}
	return availability.Classify(busy, total), nil
}

// Day is one grid cell. Out-of-month placeholder cells have MonthDay == 0
// and a nil Level.
type Day struct {
	MonthDay int
	Weekday  time.Weekday
	Date     time.Time
	Level    *availability.Level
}

// Week is a run of exactly 7 cells.
type Week []Day

// Builder produces month grids. It is a pure function of store state at
// call time; nothing is cached between calls.
type Builder struct {
	agg       *Aggregator
	store     storage.Store
	weekStart time.Weekday
}

func NewBuilder(store storage.Store, weekStart time.Weekday) *Builder {
	return &Builder{
		agg:       NewAggregator(store),
		store:     store,
		weekStart: weekStart,
	}
}

// MonthGrid returns the weeks of a month for a place, each cell annotated
// with its busy level. Leading and trailing cells belonging to adjacent
// months are placeholders.
func (b *Builder) MonthGrid(ctx context.Context, place string, year, month int) ([]Week, error) {
	if month < 1 || month > 12 {
		return nil, &InvalidMonthError{Month: month}
	}

	if _, err := b.store.PlaceByName(ctx, place); err != nil {
		return nil, err
	}
	grounds, err := b.store.GroundsByPlace(ctx, place)
	if err != nil {
		return nil, err
	}

	first := model.Date(year, time.Month(month), 1)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	leading := (int(first.Weekday()) - int(b.weekStart) + 7) % 7

	cells := leading + daysInMonth
	if rem := cells % 7; rem != 0 {
		cells += 7 - rem
	}

	var weeks []Week
	week := make(Week, 0, 7)
	for i := 0; i < cells; i++ {
		day := Day{
			Weekday: time.Weekday((int(b.weekStart) + i) % 7),
		}
		monthDay := i - leading + 1
		if monthDay >= 1 && monthDay <= daysInMonth {
			date := model.Date(year, time.Month(month), monthDay)
			level, err := b.agg.BusyLevel(ctx, grounds, date)
			if err != nil {
				return nil, err
			}
			day.MonthDay = monthDay
			day.Date = date
			day.Level = &level
		}
		week = append(week, day)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make(Week, 0, 7)
		}
	}
	return weeks, nil
}
