package report

import "strings"

// EventWeight returns how many days a status code accounts for: 1 for a
// full day, 0.5 for an "-AM"/"-PM" half day, 0.5 per part of a mixed
// "A/B" day, and 0 for "W" or "". With prefixes set, only codes (or parts)
// starting with one of them are counted.
func EventWeight(code string, prefixes []string) float64 {
	if code == "" || code == "W" {
		return 0
	}

	if strings.Contains(code, "/") {
		var total float64
		for _, part := range strings.Split(code, "/") {
			if matches(strings.TrimSpace(part), prefixes) {
				total += 0.5
			}
		}
		return total
	}

	if base, ok := trimHalf(code); ok {
		if matches(base, prefixes) {
			return 0.5
		}
		return 0
	}

	if matches(code, prefixes) {
		return 1
	}
	return 0
}

func trimHalf(code string) (string, bool) {
	for _, suffix := range []string{"-AM", "-PM"} {
		if base, ok := strings.CutSuffix(code, suffix); ok {
			return base, true
		}
	}
	return code, false
}

func matches(code string, prefixes []string) bool {
	if prefixes == nil {
		return code != "" && code != "W"
	}
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}
