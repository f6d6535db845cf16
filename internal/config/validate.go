package config

import "sort"

// ValidateMode selects how strict Validate is.
type ValidateMode string

const (
	// ModeFull requires the eventchain marker and a name.
	ModeFull ValidateMode = ""
	// ModeBuild skips the marker and name checks.
	ModeBuild ValidateMode = "build"
)

// Validation messages. The wording is what operators see on the console.
const (
	MsgMissingMarker = `requires an "eventchain": 1 key pair`
	MsgMissingName   = `requires a "name" attribute`
	MsgMissingQuery  = `requires a 'q' attribute`
	MsgEmptyQuery    = `"q" should have "find" attribute`
	MsgQueryKey      = `"q" currently supports only "find" and "project"`
)

var allowedQueryKeys = map[string]bool{
	"find":    true,
	"project": true,
}

// Validate checks a decoded config object and returns every violation.
// An empty result means the config is valid. Validate has no side effects.
func Validate(fields map[string]any, mode ValidateMode) []string {
	var errs []string

	if mode != ModeBuild && !truthy(fields["eventchain"]) {
		errs = append(errs, MsgMissingMarker)
	}
	if mode != ModeBuild && !truthy(fields["name"]) {
		errs = append(errs, MsgMissingName)
	}

	q, ok := fields["q"]
	if !ok || !truthy(q) {
		return append(errs, MsgMissingQuery)
	}

	query, _ := q.(map[string]any)
	if len(query) == 0 {
		return append(errs, MsgEmptyQuery)
	}

	// Sorted so the report is stable across runs.
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !allowedQueryKeys[key] {
			errs = append(errs, MsgQueryKey)
		}
	}

	return errs
}
