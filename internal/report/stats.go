// Package report turns stored records into per-employee statistics, HR
// rule checks and an xlsx workbook.
package report

import (
	"sort"

	"leaveplan/internal/model"
	"leaveplan/internal/planning"
)

// Counted half-day codes. The bare family letters collect halves whose
// detail carries no approval marker.
var (
	CountedCodes = []string{"TV", "TP", "CV", "CP", "RV", "RP"}
	UnknownCodes = []string{planning.FamilyRemote, planning.FamilyLeave, planning.FamilyRTT}
)

// EmployeeStats aggregates one employee over a set of records.
type EmployeeStats struct {
	Name   string         `json:"name"`
	UID    string         `json:"uid"`
	Halves map[string]int `json:"halves"`
	Rules  RuleResult     `json:"rules"`
}

// Days returns the number of days counted under code, a half day being 0.5.
func (s EmployeeStats) Days(code string) float64 {
	return float64(s.Halves[code]) / 2
}

// Analyze groups recs per employee, counts every remote-work and leave half
// by code, and runs the HR rules for year. Employees are sorted by name.
func Analyze(recs []model.Record, year int, rules Rules) ([]EmployeeStats, error) {
	byKey := map[string]*EmployeeStats{}
	grouped := map[string][]model.Record{}
	var order []string

	for _, r := range recs {
		key := r.EmployeeRef().Key()
		s, ok := byKey[key]
		if !ok {
			s = &EmployeeStats{Name: r.Employee, UID: r.UID, Halves: map[string]int{}}
			byKey[key] = s
			order = append(order, key)
		}
		for _, h := range []planning.Half{
			{State: r.MorningState, Detail: r.MorningDetail},
			{State: r.AfternoonState, Detail: r.AfternoonDetail},
		} {
			if h.State != model.RemoteWork && h.State != model.Leave {
				continue
			}
			s.Halves[planning.HalfCode(h)]++
		}
		grouped[key] = append(grouped[key], r)
	}

	out := make([]EmployeeStats, 0, len(order))
	for _, key := range order {
		s := byKey[key]
		res, err := rules.Check(grouped[key], year)
		if err != nil {
			return nil, err
		}
		s.Rules = res
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

// Codes returns the display code of every record, keyed by employee key and
// then by date.
func Codes(recs []model.Record) map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, r := range recs {
		key := r.EmployeeRef().Key()
		if out[key] == nil {
			out[key] = map[string]string{}
		}
		out[key][r.Date] = planning.StatusCode(planning.SlotOf(r))
	}
	return out
}
