// Package planning turns the pixel geometry of the team planning grid into
// per-employee, per-half-day attendance records.
//
// The source calendar only exposes rendered overlay elements (a CSS class
// string, a title and a horizontal extent). Everything here is a pure
// transformation of those descriptors: no I/O, no shared state, safe to run
// per employee-month in parallel.
package planning

import "strings"

// Class-string marker tokens of the source calendar. They are the integration
// contract with a third-party renderer, so they are matched as plain
// substrings and kept here, in one place.
const (
	TokenNonWorkingDay = "grey_cell_weekend"
	TokenRemoteWork    = "telework"
	TokenValidated     = "validated_vcell"
	TokenToValidate    = "to_validate_vcell"
)

// Human labels appended to event titles. The status-code synthesizer looks
// for them (case-insensitively) in detail text.
const (
	LabelValidated  = "Validé"
	LabelToValidate = "À valider"
)

// Kind is the event kind encoded in an overlay's class string.
type Kind int

const (
	KindNonWorkingDay Kind = iota + 1
	KindRemoteWork
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindNonWorkingDay:
		return "non_working_day"
	case KindRemoteWork:
		return "remote_work"
	case KindLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Status is the approval state of a RemoteWork or Leave declaration.
type Status int

const (
	StatusNone Status = iota
	StatusValidated
	StatusPending
)

// Label returns the text appended to the event title, or "" for StatusNone.
func (s Status) Label() string {
	switch s {
	case StatusValidated:
		return LabelValidated
	case StatusPending:
		return LabelToValidate
	default:
		return ""
	}
}

func (s Status) String() string {
	switch s {
	case StatusValidated:
		return "validated"
	case StatusPending:
		return "pending"
	default:
		return "none"
	}
}

// Classify maps a raw class attribute to an event kind and status. The
// rules are applied in a fixed order:
//
//  1. non-working-day token: KindNonWorkingDay, no status
//  2. remote-work token: KindRemoteWork
//  3. validated or to-validate token: KindLeave
//
// ok is false when none applies; the element is not an event and must be
// skipped by the caller.
func Classify(cssClass string) (kind Kind, status Status, ok bool) {
	switch {
	case strings.Contains(cssClass, TokenNonWorkingDay):
		return KindNonWorkingDay, StatusNone, true
	case strings.Contains(cssClass, TokenRemoteWork):
		return KindRemoteWork, statusOf(cssClass), true
	case strings.Contains(cssClass, TokenValidated), strings.Contains(cssClass, TokenToValidate):
		return KindLeave, statusOf(cssClass), true
	default:
		return 0, StatusNone, false
	}
}

// statusOf gives "to validate" precedence over "validated" when both tokens
// are present.
func statusOf(cssClass string) Status {
	switch {
	case strings.Contains(cssClass, TokenToValidate):
		return StatusPending
	case strings.Contains(cssClass, TokenValidated):
		return StatusValidated
	default:
		return StatusNone
	}
}

// BuildDetail combines an event title and its status label for display:
// "Title (Label)", "Title", "Label" or "".
func BuildDetail(title string, status Status) string {
	title = strings.TrimSpace(title)
	label := status.Label()
	switch {
	case title != "" && label != "":
		return title + " (" + label + ")"
	case title != "":
		return title
	default:
		return label
	}
}
