package planning

import "regexp"

var uidRe = regexp.MustCompile(`HRF([A-Za-z0-9]{6})`)

// ExtractUID returns the employee code of a row identifier such as
// "HRF344256-0_HRF460606". The leading code is shared by the team, the
// employee's own code is the last one. Returns "" when there is none.
func ExtractUID(corpID string) string {
	matches := uidRe.FindAllStringSubmatch(corpID, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}
