package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAvailableSlotsSubtractsOccupied(t *testing.T) {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	slots := AvailableSlots("09:00", "12:00", 30, []string{"10:00:00"}, now, false)

	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, slots)
}

func TestAvailableSlotsExcludesPastForToday(t *testing.T) {
	// 11:00 local time: every slot starting at or before 11:00 is gone.
	now := time.Date(2025, 11, 3, 11, 0, 0, 0, time.UTC)

	slots := AvailableSlots("09:00", "12:00", 30, nil, now, true)

	assert.Equal(t, []string{"11:30"}, slots)
}

func TestAvailableSlotsStepPartitionsDay(t *testing.T) {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	hourly := AvailableSlots("09:00", "12:00", 60, nil, now, false)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, hourly)

	quarters := AvailableSlots("09:00", "10:00", 15, nil, now, false)
	assert.Equal(t, []string{"09:00", "09:15", "09:30", "09:45"}, quarters)
}

func TestAvailableSlotsEmptyWindow(t *testing.T) {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	assert.Empty(t, AvailableSlots("12:00", "12:00", 30, nil, now, false))
	assert.Empty(t, AvailableSlots("bogus", "12:00", 30, nil, now, false))
}

func TestAvailableSlotsOccupiedTimeWithSeconds(t *testing.T) {
	now := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	// appointment_time columns carry seconds; only HH:MM matters.
	slots := AvailableSlots("09:00", "10:00", 30, []string{"09:30:00"}, now, false)
	assert.Equal(t, []string{"09:00"}, slots)
}
