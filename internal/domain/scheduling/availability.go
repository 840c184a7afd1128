package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Slot annotation statuses for the agenda view.
const (
	SlotFree    = "FREE"
	SlotBooked  = "BOOKED"
	SlotBlocked = "BLOCKED"
)

// Slot is one entry of a day's agenda: the start instant plus what currently
// occupies it, if anything.
type Slot struct {
	Start         time.Time  `json:"start"`
	Status        string     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	PatientName   *string    `json:"patient_name,omitempty"`
	BlockReason   *string    `json:"block_reason,omitempty"`
}

// DayAgenda groups a day's annotated slots.
type DayAgenda struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// ParseClock converts an "HH:MM" wall-clock string to minutes past midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// dayAnchor truncates t to midnight of its UTC calendar day.
func dayAnchor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateSlots expands a grid row into the slot starts for one calendar
// day. Slots tile the working interval from its start; a trailing partial
// slot that would overshoot the end is discarded. The grid row's weekday is
// not checked here, callers select the row for the day.
func GenerateSlots(grid *WeeklySchedule, day time.Time) ([]time.Time, error) {
	startMin, err := ParseClock(grid.StartTime)
	if err != nil {
		return nil, err
	}
	endMin, err := ParseClock(grid.EndTime)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, fmt.Errorf("schedule start %s is not before end %s", grid.StartTime, grid.EndTime)
	}
	dur := grid.SlotMinutes
	if dur <= 0 {
		dur = DefaultSlotMinutes
	}

	anchor := dayAnchor(day)
	start := anchor.Add(time.Duration(startMin) * time.Minute)
	end := anchor.Add(time.Duration(endMin) * time.Minute)

	var slots []time.Time
	for slot := start; !slot.Add(time.Duration(dur) * time.Minute).After(end); slot = slot.Add(time.Duration(dur) * time.Minute) {
		slots = append(slots, slot)
	}
	return slots, nil
}

// blockedBy returns the first window containing the slot start, if any.
// Containment is [start, end): a window's own end instant does not block.
func blockedBy(slot time.Time, windows []*UnavailabilityWindow) *UnavailabilityWindow {
	for _, w := range windows {
		if !slot.Before(w.StartTime) && slot.Before(w.EndTime) {
			return w
		}
	}
	return nil
}

// AnnotateSlots marks each generated slot FREE, BOOKED or BLOCKED. A booked
// slot carries the appointment id and patient name; a blocked one the
// window's reason. Order is preserved.
func AnnotateSlots(slots []time.Time, booked []*BookedSlot, windows []*UnavailabilityWindow) []Slot {
	byStart := make(map[time.Time]*BookedSlot, len(booked))
	for _, b := range booked {
		byStart[b.StartTime.UTC()] = b
	}

	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		entry := Slot{Start: s, Status: SlotFree}
		if b, ok := byStart[s.UTC()]; ok {
			entry.Status = SlotBooked
			id := b.AppointmentID
			name := b.PatientName
			entry.AppointmentID = &id
			entry.PatientName = &name
		} else if w := blockedBy(s, windows); w != nil {
			entry.Status = SlotBlocked
			reason := w.Reason
			entry.BlockReason = &reason
		}
		out = append(out, entry)
	}
	return out
}

// FilterFree drops booked and blocked slots, keeping order.
func FilterFree(slots []time.Time, booked []*BookedSlot, windows []*UnavailabilityWindow) []time.Time {
	taken := make(map[time.Time]bool, len(booked))
	for _, b := range booked {
		taken[b.StartTime.UTC()] = true
	}

	var out []time.Time
	for _, s := range slots {
		if taken[s.UTC()] {
			continue
		}
		if blockedBy(s, windows) != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
