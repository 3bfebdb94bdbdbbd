// Package ics publishes remote-work and leave days as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	appLog "leaveplan/internal/log"
	"leaveplan/internal/model"
	"leaveplan/internal/planning"
)

const ProductID = "-//leaveplan//planning export//FR"

// Category values written on each event.
const (
	CategoryLeave  = "LEAVE"
	CategoryRemote = "REMOTE_WORK"
	CategoryMixed  = "MIXED"
)

// namespace seeds event UIDs so the same day range keeps the same UID
// across exports and calendar clients update instead of duplicating.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("leaveplan"))

// Options configures an export.
type Options struct {
	// Name is shown by clients as the calendar title.
	Name string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Entry is one exported event: consecutive days of one employee sharing
// the same status code.
type Entry struct {
	UID      string
	Employee model.Employee
	Code     string
	Category string
	Start    time.Time // first day
	End      time.Time // day after the last, as DTEND for all-day events
	Details  []string
}

// Entries groups recs into events. Days that are present or non-working
// produce nothing; a change of code or a gap in dates starts a new event.
func Entries(recs []model.Record) []Entry {
	type day struct {
		date time.Time
		rec  model.Record
	}
	byEmp := map[string][]day{}
	emps := map[string]model.Employee{}
	for _, r := range recs {
		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			appLog.Warn("ics: record skipped", "employee", r.Employee, "date", r.Date)
			continue
		}
		key := r.EmployeeRef().Key()
		byEmp[key] = append(byEmp[key], day{d, r})
		emps[key] = r.EmployeeRef()
	}

	keys := make([]string, 0, len(byEmp))
	for k := range byEmp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Entry
	for _, key := range keys {
		days := byEmp[key]
		sort.SliceStable(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

		var cur *Entry
		for _, d := range days {
			code := planning.StatusCode(planning.SlotOf(d.rec))
			if code == "" || code == planning.CodeNonWorking {
				cur = nil
				continue
			}
			if cur != nil && cur.Code == code && cur.End.Equal(d.date) {
				cur.End = d.date.AddDate(0, 0, 1)
				cur.Details = appendDetails(cur.Details, d.rec)
				continue
			}
			out = append(out, Entry{
				Employee: emps[key],
				Code:     code,
				Category: category(d.rec),
				Start:    d.date,
				End:      d.date.AddDate(0, 0, 1),
				Details:  appendDetails(nil, d.rec),
			})
			cur = &out[len(out)-1]
		}
	}

	for i := range out {
		e := &out[i]
		e.UID = uuid.NewSHA1(namespace, []byte(e.Employee.Key()+"|"+e.Start.Format("20060102")+"|"+e.Code)).String()
	}
	return out
}

func category(r model.Record) string {
	leave := r.MorningState == model.Leave || r.AfternoonState == model.Leave
	remote := r.MorningState == model.RemoteWork || r.AfternoonState == model.RemoteWork
	switch {
	case leave && remote:
		return CategoryMixed
	case leave:
		return CategoryLeave
	default:
		return CategoryRemote
	}
}

func appendDetails(list []string, r model.Record) []string {
	for _, d := range []string{r.MorningDetail, r.AfternoonDetail} {
		if d == "" {
			continue
		}
		seen := false
		for _, have := range list {
			if have == d {
				seen = true
				break
			}
		}
		if !seen {
			list = append(list, d)
		}
	}
	return list
}

// Summary is the event title, e.g. "Jeanne Martin: CV-AM".
func (e Entry) Summary() string {
	return fmt.Sprintf("%s: %s", e.Employee.Name, e.Code)
}

// Calendar builds the VCALENDAR for recs.
func Calendar(recs []model.Record, opts Options) *ical.Calendar {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	entries := Entries(recs)
	for _, e := range entries {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(now.UTC())
		ev.SetAllDayStartAt(e.Start)
		ev.SetAllDayEndAt(e.End)
		ev.SetSummary(e.Summary())
		if len(e.Details) > 0 {
			ev.SetDescription(strings.Join(e.Details, "\n"))
		}
		ev.SetProperty(ical.ComponentPropertyCategories, e.Category)
		ev.SetProperty(ical.ComponentPropertyTransp, "TRANSPARENT")
	}

	appLog.Debug("ics: calendar built", "records", len(recs), "events", len(entries))
	return cal
}

// Write serializes the calendar for recs to w.
func Write(w io.Writer, recs []model.Record, opts Options) error {
	_, err := io.WriteString(w, Calendar(recs, opts).Serialize())
	return errors.Wrap(err, "ics: write calendar")
}
