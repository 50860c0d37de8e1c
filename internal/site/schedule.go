package site

import "time"

// NextCrawlAt maps a cadence to the next due timestamp relative to now.
// CadenceNone returns nil: such sites are never auto-scheduled. Pure
// function; cadence changes recompute next-due from the current time,
// not the last crawl time.
func NextCrawlAt(c Cadence, now time.Time) *time.Time {
	var interval time.Duration
	switch c {
	case CadenceHourly:
		interval = time.Hour
	case CadenceDaily:
		interval = 24 * time.Hour
	case CadenceWeekly:
		interval = 7 * 24 * time.Hour
	default:
		return nil
	}
	next := now.Add(interval)
	return &next
}
