package utils

import "time"

// KarmaLevel names the tier for an all-time karma total.
func KarmaLevel(karma int) string {
	switch {
	case karma >= 1000:
		return "legend"
	case karma >= 201:
		return "regular"
	case karma >= 51:
		return "contributor"
	case karma >= 11:
		return "newcomer"
	default:
		return "seedling"
	}
}

// DaysSince counts whole days between createdAt and now.
func DaysSince(createdAt, now time.Time) int {
	return int(now.Sub(createdAt).Hours() / 24)
}
