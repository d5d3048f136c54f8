// Package model holds the plain data records shared by the engine, the
// stores and the binaries.
package model

import (
	"strconv"
	"time"

	"github.com/pmiara/rezerwacja-boisk/internal/availability"
)

// Place is a location with sports grounds, managed by one administrator.
type Place struct {
	Name          string // primary key
	Administrator string
	Description   string
	PhoneNumber   string
	City          string
	Street        string
}

// SportsGround is a pitch/court belonging to a Place. Grounds under the
// same place and name prefix are numbered with consecutive local ids;
// (Place, NamePrefix, LocalID) is unique. A ground may be closed outside
// its season dates; the season is informational and not enforced here.
type SportsGround struct {
	ID          string
	Place       string
	NamePrefix  string
	LocalID     int
	Opening     availability.Clock
	Closing     availability.Clock
	SeasonStart *time.Time
	SeasonEnd   *time.Time
}

const DefaultNamePrefix = "Boisko nr"

func (g SportsGround) LocalName() string {
	return g.NamePrefix + " " + strconv.Itoa(g.LocalID)
}

// OpenMinutes is the ground's open duration on any day.
func (g SportsGround) OpenMinutes() int {
	return g.Closing.Minutes() - g.Opening.Minutes()
}

// Reservation of a specific SportsGround on one calendar date. Created
// unaccepted; only accepted reservations count toward conflicts and busy
// levels.
type Reservation struct {
	ID         string
	GroundID   string
	Email      string
	Surname    string
	EventDate  time.Time // date only, normalized to midnight UTC
	Start      availability.Clock
	End        availability.Clock
	IsAccepted bool
	CreatedAt  time.Time
}

func (r Reservation) Interval() availability.Interval {
	return availability.Interval{Start: r.Start, End: r.End}
}

// Date normalizes a calendar date to midnight UTC, the representation used
// for EventDate everywhere.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
