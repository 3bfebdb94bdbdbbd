package planning

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"
)

// DaySet is a set of 0-based day indices within one month.
type DaySet map[int]struct{}

func (s DaySet) Add(day int) { s[day] = struct{}{} }

func (s DaySet) Has(day int) bool {
	_, ok := s[day]
	return ok
}

// Sorted returns the members in ascending order.
func (s DaySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// Literal marker date, "2026/04/06" or "2026-04-06".
var markerDateRe = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})|(\d{4})-(\d{2})-(\d{2})`)

// ExtractNonWorkingDays harvests non-working days from marker class strings.
// Each class carries a literal date; dates outside year/month, impossible
// dates ("2026/02/30") and classes without a date are dropped. Pixel geometry
// plays no part here.
func ExtractNonWorkingDays(classes []string, year int, month time.Month) DaySet {
	days := DaySet{}
	for _, class := range classes {
		for _, m := range markerDateRe.FindAllStringSubmatch(class, -1) {
			parts := m[1:4]
			if parts[0] == "" {
				parts = m[4:7]
			}
			y, _ := strconv.Atoi(parts[0])
			mo, _ := strconv.Atoi(parts[1])
			d, _ := strconv.Atoi(parts[2])
			if y != year || time.Month(mo) != month {
				continue
			}
			t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
			if t.Day() != d || t.Month() != month {
				continue
			}
			days.Add(d - 1)
		}
	}
	return days
}

// WeekendDays lists the Saturdays and Sundays of a month. It stands in for
// the marker layer when a page carries no markers at all, which otherwise
// would leave weekends resolved as present days.
func WeekendDays(year int, month time.Month) DaySet {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	until := start.AddDate(0, 1, -1)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.SA, rrule.SU},
		Dtstart:   start,
		Until:     until,
	})
	days := DaySet{}
	if err != nil {
		return days
	}
	for _, t := range r.All() {
		days.Add(t.Day() - 1)
	}
	return days
}
