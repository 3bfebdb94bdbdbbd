package planning

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"leaveplan/internal/model"
)

// Validation is the approval state read back from a detail string.
type Validation int

const (
	ValidationUnknown Validation = iota
	Validated
	Pending
)

func (v Validation) String() string {
	switch v {
	case Validated:
		return "validated"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

var lower = cases.Lower(language.French)

func fold(s string) string {
	return lower.String(norm.NFC.String(s))
}

// ValidationOf reads the approval state from a detail string. A detail
// carrying neither marker is ValidationUnknown, not pending.
func ValidationOf(detail string) Validation {
	d := fold(detail)
	switch {
	case strings.Contains(d, "validé"):
		return Validated
	case strings.Contains(d, "à valider"), strings.Contains(d, "a valider"):
		return Pending
	default:
		return ValidationUnknown
	}
}

// IsRTT reports whether a leave detail names an RTT day.
func IsRTT(detail string) bool {
	return strings.Contains(fold(detail), "rtt")
}

// Half-day codes.
const (
	CodePresent    = "P"
	CodeNonWorking = "W"
	FamilyRemote   = "T"
	FamilyLeave    = "C"
	FamilyRTT      = "R"
)

// HalfCode returns the code of one half: P, W, or a family letter (T, C,
// R) followed by V or P. With an unknown validation the bare family letter
// is returned.
func HalfCode(h Half) string {
	var family string
	switch h.State {
	case model.Present:
		return CodePresent
	case model.NonWorkingDay:
		return CodeNonWorking
	case model.RemoteWork:
		family = FamilyRemote
	case model.Leave:
		family = FamilyLeave
		if IsRTT(h.Detail) {
			family = FamilyRTT
		}
	default:
		return CodePresent
	}
	switch ValidationOf(h.Detail) {
	case Validated:
		return family + "V"
	case Pending:
		return family + "P"
	default:
		return family
	}
}

// StatusCode condenses a day into its display code:
//
//	""         present all day
//	"W"        non-working all day
//	"CV"       same code on both halves
//	"TP-PM"    present morning, event afternoon
//	"CV-AM"    event morning, present afternoon
//	"CV/TV"    two different codes
func StatusCode(slot DaySlot) string {
	if slot.Morning.State == model.NonWorkingDay && slot.Afternoon.State == model.NonWorkingDay {
		return CodeNonWorking
	}
	if slot.Morning.State == model.Present && slot.Afternoon.State == model.Present {
		return ""
	}
	am, pm := HalfCode(slot.Morning), HalfCode(slot.Afternoon)
	switch {
	case am == pm:
		if am == CodePresent {
			return ""
		}
		return am
	case am == CodePresent:
		return pm + "-PM"
	case pm == CodePresent:
		return am + "-AM"
	default:
		return am + "/" + pm
	}
}
