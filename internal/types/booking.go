// Package types provides type definitions for structured data used throughout the court-agent system.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxPartySize is the largest party the target portals accept on a single booking.
const MaxPartySize = 2

// ClockTime is a time of day with minute precision, independent of date and zone.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClockTime parses a "HH:MM" string into a ClockTime.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the ClockTime as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the absolute instant of this time of day on the given date,
// in the date's location.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// Before reports whether c is earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool {
	if c.Hour != other.Hour {
		return c.Hour < other.Hour
	}
	return c.Minute < other.Minute
}

// MarshalJSON encodes the ClockTime as a "HH:MM" string.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a "HH:MM" string into the ClockTime.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Schedule maps weekdays to the times of day a slot should be booked for.
// JSON keys are lowercase English weekday names ("tuesday") so config files
// stay readable.
type Schedule map[time.Weekday][]ClockTime

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses a case-insensitive English weekday name.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return wd, nil
}

// MarshalJSON encodes the schedule with weekday-name keys in weekday order.
func (s Schedule) MarshalJSON() ([]byte, error) {
	out := make(map[string][]ClockTime, len(s))
	for wd, slots := range s {
		sorted := append([]ClockTime(nil), slots...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
		out[strings.ToLower(wd.String())] = sorted
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes weekday-name keys back into time.Weekday keys.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var raw map[string][]ClockTime
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Schedule, len(raw))
	for name, slots := range raw {
		wd, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		out[wd] = slots
	}
	*s = out
	return nil
}

// BookingConfig describes one recurring reservation the engine should book:
// which facility, which sport, for how many people, and at which weekly times.
// The engine only reads configs; editing them is the config store's concern.
type BookingConfig struct {
	ID          uuid.UUID `json:"id"`
	FacilityURL string    `json:"facility_url" validate:"required,url"`
	Sport       string    `json:"sport" validate:"required,min=1"`
	PartySize   int       `json:"party_size" validate:"required,min=1,max=2"`
	Enabled     bool      `json:"enabled"`
	Schedule    Schedule  `json:"schedule" validate:"required,min=1"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Contact holds the identity fields submitted on the portal's contact form.
type Contact struct {
	Name  string `json:"name" validate:"required,min=1"`
	Phone string `json:"phone" validate:"required,min=1"`
	Email string `json:"email" validate:"required,email"`
}

// Validate validates the BookingConfig using the validator, plus the schedule
// invariant the tag syntax cannot express: every weekday entry needs at least
// one time of day.
func (b *BookingConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(b); err != nil {
		return err
	}
	for wd, slots := range b.Schedule {
		if len(slots) == 0 {
			return fmt.Errorf("schedule entry for %s has no times", strings.ToLower(wd.String()))
		}
	}
	return nil
}

// Validate validates the Contact using the validator.
func (c *Contact) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
