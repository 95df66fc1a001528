// Package schedule holds the pure time-window policy for check-ins:
// expiration rules, candidate send slots, and the post-session cutoff.
// Every function takes the current time as a parameter; nothing here
// touches the wall clock or does I/O.
package schedule

import "time"

const (
	// MorningHour and EveningHour bound the daytime window in the
	// user's local time. A check-in scheduled inside [9, 19) stays
	// relevant until 19:00 that day; anything else stays relevant
	// until 09:00 the next calendar day.
	MorningHour = 9
	EveningHour = 19

	// MagicLinkTTL is how long a delivered email link stays usable,
	// measured from the send time. The boundary instant itself is
	// still valid.
	MagicLinkTTL = 24 * time.Hour
)

// Location resolves an IANA timezone name, falling back to UTC for an
// empty or unknown zone.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CheckInExpiration returns the instant at which a check-in scheduled
// for the given time stops being contextually relevant.
func CheckInExpiration(scheduledFor time.Time, tz string) time.Time {
	loc := Location(tz)
	local := scheduledFor.In(loc)

	if h := local.Hour(); h >= MorningHour && h < EveningHour {
		return time.Date(local.Year(), local.Month(), local.Day(), EveningHour, 0, 0, 0, loc)
	}

	next := local.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), MorningHour, 0, 0, 0, loc)
}

// CheckInExpired reports whether the check-in's window has closed.
// Exactly at the boundary is not expired.
func CheckInExpired(scheduledFor time.Time, tz string, now time.Time) bool {
	return now.After(CheckInExpiration(scheduledFor, tz))
}

// MagicLinkExpired reports whether a delivered email link is past its
// access window. A link that was never sent cannot be expired.
func MagicLinkExpired(emailSentAt *time.Time, now time.Time) bool {
	if emailSentAt == nil {
		return false
	}
	return now.Sub(*emailSentAt) > MagicLinkTTL
}
