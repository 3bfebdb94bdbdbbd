package planning

import (
	"sort"

	"leaveplan/internal/model"
)

// Resolve merges events into p and returns it. Three passes run in order:
//
//  1. half-day events, per day in Order; each claims its period
//  2. full-day events, all Leave before all RemoteWork, both halves
//  3. non-working days, forcing both halves and clearing the details
//
// Within passes 1 and 2 a half only advances: Leave replaces Present or
// RemoteWork, RemoteWork replaces Present, nothing replaces Leave or
// NonWorkingDay. Among events of the same kind the first in Order wins.
//
// Half-day events without a geometric period take the morning if they are
// the first such event of the day, the afternoon if second, and are ignored
// beyond that.
//
// The output depends only on the events and their Order, never on the
// order of the slice itself or on map iteration.
func Resolve(p *Planning, events []ClassifiedEvent, nonWorking DaySet) *Planning {
	if len(p.Days) == 0 {
		return p
	}
	sorted := sortByOrder(events)
	applyHalfDays(p, sorted)
	applyFullDays(p, sorted, KindLeave)
	applyFullDays(p, sorted, KindRemoteWork)
	applyNonWorkingDays(p, nonWorking)
	return p
}

func sortByOrder(events []ClassifiedEvent) []ClassifiedEvent {
	out := make([]ClassifiedEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func applyHalfDays(p *Planning, events []ClassifiedEvent) {
	byDay := make([][]ClassifiedEvent, len(p.Days))
	for _, ev := range events {
		if !ev.HalfDay {
			continue
		}
		start, end, ok := dayRange(ev, len(p.Days))
		if !ok {
			continue
		}
		for d := start; d <= end; d++ {
			byDay[d] = append(byDay[d], ev)
		}
	}

	for d, evs := range byDay {
		slot := &p.Days[d]
		unplaced := 0
		for _, ev := range evs {
			period := ev.Period
			if period == PeriodUnknown {
				switch unplaced {
				case 0:
					period = Morning
				case 1:
					period = Afternoon
				}
				unplaced++
				if period == PeriodUnknown {
					continue
				}
			}
			advance(slot.half(period), ev)
		}
	}
}

func applyFullDays(p *Planning, events []ClassifiedEvent, kind Kind) {
	for _, ev := range events {
		if ev.HalfDay || ev.Kind != kind {
			continue
		}
		start, end, ok := dayRange(ev, len(p.Days))
		if !ok {
			continue
		}
		for d := start; d <= end; d++ {
			advance(&p.Days[d].Morning, ev)
			advance(&p.Days[d].Afternoon, ev)
		}
	}
}

func applyNonWorkingDays(p *Planning, days DaySet) {
	for _, d := range days.Sorted() {
		if d < 0 || d >= len(p.Days) {
			continue
		}
		p.Days[d].Morning = Half{State: model.NonWorkingDay}
		p.Days[d].Afternoon = Half{State: model.NonWorkingDay}
	}
}

// advance writes ev into h if ev outranks the current state.
func advance(h *Half, ev ClassifiedEvent) bool {
	if !canOverwrite(h.State, ev.Kind) {
		return false
	}
	h.State = ev.State()
	h.Detail = ev.Detail
	return true
}

func canOverwrite(current model.State, kind Kind) bool {
	switch kind {
	case KindLeave:
		return current == model.Present || current == model.RemoteWork
	case KindRemoteWork:
		return current == model.Present
	default:
		return false
	}
}

// dayRange clamps the event to the month; ok is false for an inverted range.
func dayRange(ev ClassifiedEvent, nbDays int) (int, int, bool) {
	start := clamp(ev.Start, 0, nbDays-1)
	end := clamp(ev.End, 0, nbDays-1)
	return start, end, start <= end
}
