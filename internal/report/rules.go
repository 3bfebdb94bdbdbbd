package report

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"leaveplan/internal/model"
)

// Rules are the HR checks run over a window of the report year. From and To
// are "MM-DD" and both ends are included.
type Rules struct {
	From               string  `yaml:"from"`
	To                 string  `yaml:"to"`
	MinConsecutiveDays int     `yaml:"min_consecutive_days"`
	MinTotalDays       float64 `yaml:"min_total_days"`
}

func DefaultRules() Rules {
	return Rules{
		From:               "05-15",
		To:                 "10-15",
		MinConsecutiveDays: 10,
		MinTotalDays:       20,
	}
}

// Window resolves the rule window in year.
func (r Rules) Window(year int) (time.Time, time.Time, error) {
	from, err := monthDay(r.From, year)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "report: rule window start")
	}
	to, err := monthDay(r.To, year)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "report: rule window end")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("report: rule window %s..%s is inverted", r.From, r.To)
	}
	return from, to, nil
}

func monthDay(s string, year int) (time.Time, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// RuleResult is the outcome of the HR checks for one employee.
type RuleResult struct {
	LongestRun    int     `json:"longest_run"`
	TotalDays     float64 `json:"total_days"`
	ConsecutiveOK bool    `json:"consecutive_ok"`
	TotalOK       bool    `json:"total_ok"`
}

type dayKind int

const (
	dayOther dayKind = iota
	dayLeave
	dayOff
)

// Check evaluates the rules on one employee's records. A day with leave on
// either half counts toward the run; a fully non-working day neither breaks
// nor extends it; any other day, or a day with no record, resets it. The
// total adds 1 per full leave day and 0.5 per half.
func (r Rules) Check(recs []model.Record, year int) (RuleResult, error) {
	from, to, err := r.Window(year)
	if err != nil {
		return RuleResult{}, err
	}

	var res RuleResult
	kinds := make(map[string]dayKind, len(recs))
	for _, rec := range recs {
		d, err := time.Parse(model.DateLayout, rec.Date)
		if err != nil || d.Before(from) || d.After(to) {
			continue
		}
		am, pm := rec.MorningState == model.Leave, rec.AfternoonState == model.Leave
		switch {
		case am && pm:
			kinds[rec.Date] = dayLeave
			res.TotalDays++
		case am || pm:
			kinds[rec.Date] = dayLeave
			res.TotalDays += 0.5
		case rec.MorningState == model.NonWorkingDay && rec.AfternoonState == model.NonWorkingDay:
			kinds[rec.Date] = dayOff
		}
	}

	run := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		switch kinds[d.Format(model.DateLayout)] {
		case dayLeave:
			run++
			res.LongestRun = max(res.LongestRun, run)
		case dayOff:
		default:
			run = 0
		}
	}

	res.ConsecutiveOK = res.LongestRun >= r.MinConsecutiveDays
	res.TotalOK = res.TotalDays >= r.MinTotalDays
	return res, nil
}
