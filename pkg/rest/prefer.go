package rest

import (
	"net/http"
	"strings"
)

const (
	headerPrefer            = "Prefer"
	headerPreferenceApplied = "Preference-Applied"
)

// Prefer holds preferences from the Prefer header (RFC 7240).
type Prefer struct {
	Return string // "minimal" or "representation"
}

// parsePrefer parses the Prefer header. It returns nil if the header is not present.
func parsePrefer(r *http.Request) *Prefer {
	header := r.Header.Get(headerPrefer)
	if header == "" {
		return nil
	}

	p := &Prefer{Return: "representation"}
	parseKeyValPairs(header, func(key, value string) {
		if key == "return" && isValidReturn(value) {
			p.Return = strings.ToLower(value)
		}
	})
	return p
}

// parseKeyValPairs parses comma-separated preference directives.
// For each key=value pair found, it calls fn with the key and value.
func parseKeyValPairs(header string, fn func(key, value string)) {
	for pref := range strings.SplitSeq(header, ",") {
		pref = strings.TrimSpace(pref)
		if key, value, found := strings.Cut(pref, "="); found {
			key = strings.TrimSpace(strings.ToLower(key))
			value = strings.Trim(strings.TrimSpace(value), `"`)
			fn(key, value)
		}
	}
}

func isValidReturn(s string) bool {
	switch strings.ToLower(s) {
	case "minimal", "representation":
		return true
	}
	return false
}

// WantsMinimal reports whether the client asked for no response body on
// writes.
func (p *Prefer) WantsMinimal() bool {
	return p != nil && p.Return == "minimal"
}

// applyPrefer marks res minimal when requested and acknowledges it.
func applyPrefer(w http.ResponseWriter, r *http.Request, res *Result) {
	if parsePrefer(r).WantsMinimal() {
		res.Minimal = true
		w.Header().Set(headerPreferenceApplied, "return=minimal")
	}
}
