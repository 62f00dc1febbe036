package brackets

import (
	"fmt"
	"time"
)

// MatchesPerDay is the number of round-robin slots played each day.
const MatchesPerDay = 3

var slotHours = [MatchesPerDay]int{9, 14, 18}

// BaseDate returns 09:00 of the day after now, in now's location.
func BaseDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, slotHours[0], 0, 0, 0, now.Location())
}

// SlotTime returns the kick-off of the i-th round-robin match (0-based).
func SlotTime(base time.Time, i int) time.Time {
	return dayAt(base, i/MatchesPerDay, slotHours[i%MatchesPerDay])
}

// SlotVenue cycles Ground 1..3 by match index.
func SlotVenue(i int) string {
	return fmt.Sprintf("Ground %d", i%MatchesPerDay+1)
}

func dayAt(base time.Time, dayOffset, hour int) time.Time {
	y, m, d := base.Date()
	return time.Date(y, m, d+dayOffset, hour, 0, 0, 0, base.Location())
}
