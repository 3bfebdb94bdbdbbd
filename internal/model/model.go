package model

import (
	"fmt"
	"strings"
)

// State is the attendance state of one half-day.
type State int

const (
	Present State = iota
	RemoteWork
	Leave
	NonWorkingDay
)

// Stable serialization tokens for State. These are the values written to CSV
// and JSON and must not change between releases.
const (
	tokenPresent       = "PRESENT"
	tokenRemoteWork    = "REMOTE_WORK"
	tokenLeave         = "LEAVE"
	tokenNonWorkingDay = "NON_WORKING_DAY"
)

func (s State) String() string {
	switch s {
	case Present:
		return tokenPresent
	case RemoteWork:
		return tokenRemoteWork
	case Leave:
		return tokenLeave
	case NonWorkingDay:
		return tokenNonWorkingDay
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch strings.TrimSpace(s) {
	case tokenPresent:
		return Present, nil
	case tokenRemoteWork:
		return RemoteWork, nil
	case tokenLeave:
		return Leave, nil
	case tokenNonWorkingDay:
		return NonWorkingDay, nil
	default:
		return Present, fmt.Errorf("model: unknown state %q", s)
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Employee identifies one row of the team planning.
type Employee struct {
	Name string `json:"name"`
	// UID is the stable 6-character code extracted from the row's corporate
	// identifier. Empty when the row carries none.
	UID string `json:"uid"`
}

// Key is the join key used when records are grouped per employee. The UID
// wins when present since display names are not unique.
func (e Employee) Key() string {
	if e.UID != "" {
		return e.UID
	}
	return e.Name
}

// Record is one employee on one calendar day, split into morning and
// afternoon. Details are never nil, only possibly empty.
type Record struct {
	Employee        string `json:"employee"`
	UID             string `json:"uid"`
	Date            string `json:"date"` // YYYY/MM/DD
	MorningState    State  `json:"morning_state"`
	MorningDetail   string `json:"morning_detail"`
	AfternoonState  State  `json:"afternoon_state"`
	AfternoonDetail string `json:"afternoon_detail"`
}

// DateLayout is the literal date format used by records and by the source
// calendar's non-working-day markers.
const DateLayout = "2006/01/02"

// Month returns the "YYYY/MM" prefix of the record date.
func (r Record) Month() string {
	if len(r.Date) < 7 {
		return ""
	}
	return r.Date[:7]
}

// EmployeeRef returns the Employee the record belongs to.
func (r Record) EmployeeRef() Employee {
	return Employee{Name: r.Employee, UID: r.UID}
}
