package planning

import (
	"fmt"
	"time"

	"leaveplan/internal/model"
)

// Half is the resolved state of one morning or afternoon.
type Half struct {
	State  model.State
	Detail string
}

// DaySlot is one calendar day of one employee.
type DaySlot struct {
	Date      string // YYYY/MM/DD
	Morning   Half
	Afternoon Half
}

func (s *DaySlot) half(p Period) *Half {
	if p == Afternoon {
		return &s.Afternoon
	}
	return &s.Morning
}

// Planning is one employee-month. Days[i] is day-of-month i+1.
type Planning struct {
	Employee model.Employee
	Days     []DaySlot
}

// DaysIn returns the length of a month, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildSkeleton returns nbDays all-present days starting at monthStart.
// Dates are computed on the calendar, not by adding durations, so time zone
// transitions cannot skew them.
func BuildSkeleton(monthStart time.Time, nbDays int) *Planning {
	if nbDays < 0 {
		panic(fmt.Sprintf("planning: negative day count %d", nbDays))
	}
	y, m, d := monthStart.Date()
	p := &Planning{Days: make([]DaySlot, nbDays)}
	for i := range p.Days {
		date := time.Date(y, m, d+i, 0, 0, 0, 0, time.UTC)
		p.Days[i] = DaySlot{
			Date:      date.Format(model.DateLayout),
			Morning:   Half{State: model.Present},
			Afternoon: Half{State: model.Present},
		}
	}
	return p
}

// NewMonth is BuildSkeleton for a whole calendar month, owned by employee.
func NewMonth(employee model.Employee, year int, month time.Month) *Planning {
	p := BuildSkeleton(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), DaysIn(year, month))
	p.Employee = employee
	return p
}

// Records flattens the planning into one output record per day.
func (p *Planning) Records() []model.Record {
	out := make([]model.Record, 0, len(p.Days))
	for _, d := range p.Days {
		out = append(out, model.Record{
			Employee:        p.Employee.Name,
			UID:             p.Employee.UID,
			Date:            d.Date,
			MorningState:    d.Morning.State,
			MorningDetail:   d.Morning.Detail,
			AfternoonState:  d.Afternoon.State,
			AfternoonDetail: d.Afternoon.Detail,
		})
	}
	return out
}

// SlotOf rebuilds a DaySlot from a stored record.
func SlotOf(r model.Record) DaySlot {
	return DaySlot{
		Date:      r.Date,
		Morning:   Half{State: r.MorningState, Detail: r.MorningDetail},
		Afternoon: Half{State: r.AfternoonState, Detail: r.AfternoonDetail},
	}
}
