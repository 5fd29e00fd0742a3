package theme

import (
	"net/http"
	"strings"
)

// HintHeader is the user-agent client hint carrying the preferred color scheme.
const HintHeader = "Sec-CH-Prefers-Color-Scheme"

// HintPreference is the value of the color scheme client hint.
type HintPreference string

// HintFromRequest reads the client hint from r. Missing hints mean no dark preference.
func HintFromRequest(r *http.Request) HintPreference {
	return HintPreference(strings.Trim(strings.TrimSpace(r.Header.Get(HintHeader)), `"`))
}

// PrefersDark reports whether the hint asks for a dark scheme.
func (h HintPreference) PrefersDark() bool {
	return strings.EqualFold(string(h), "dark")
}
