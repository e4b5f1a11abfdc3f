package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AvailableSlots computes the free "HH:MM" starts inside a professional's
// working window. The step equals the requested service's duration, so
// services of different durations partition the day differently. Occupied
// starts are removed, and when sameDay is set every slot at or before now's
// clock time is dropped as already past.
func AvailableSlots(startTime, endTime string, stepMinutes int, occupied []string, now time.Time, sameDay bool) []string {
	if stepMinutes <= 0 {
		stepMinutes = 60
	}
	start, ok := clockMinutes(startTime)
	if !ok {
		return nil
	}
	end, ok := clockMinutes(endTime)
	if !ok {
		return nil
	}

	busy := make(map[string]bool, len(occupied))
	for _, t := range occupied {
		if len(t) >= 5 {
			busy[t[:5]] = true
		}
	}

	nowMinutes := now.Hour()*60 + now.Minute()

	var slots []string
	for minute := start; minute < end; minute += stepMinutes {
		label := fmt.Sprintf("%02d:%02d", minute/60, minute%60)
		if busy[label] {
			continue
		}
		if sameDay && minute <= nowMinutes {
			continue
		}
		slots = append(slots, label)
	}
	return slots
}

func clockMinutes(value string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 3)
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}
