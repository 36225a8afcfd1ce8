// Package compat checks a theme against the compatibility rules of a
// platform version and sorts the findings by severity.
package compat

// Level is the severity bucket of a rule.
type Level string

// Severity levels.
const (
	LevelError          Level = "error"
	LevelWarning        Level = "warning"
	LevelRecommendation Level = "recommendation"
)

// Options controls a check and the formatting of its results.
type Options struct {
	// CheckVersion is the platform version key: v4, v5 or canary.
	CheckVersion string
	// OnlyFatalErrors keeps only fatal findings when formatting.
	OnlyFatalErrors bool
	// Verbose prints rule details and one line per failing file.
	Verbose bool
	// Skip lists extra globs left out of the scan, relative to the theme.
	Skip []string
}

// Failure is one location where a rule does not hold.
type Failure struct {
	Ref     string `json:"ref"`
	Message string `json:"message,omitempty"`
}

// Failed holds the failures recorded for one rule code.
type Failed struct {
	Failures []Failure `json:"failures,omitempty"`
}

// Finding is a failed rule joined with its metadata.
type Finding struct {
	Code     string    `json:"code"`
	Level    Level     `json:"level"`
	Rule     string    `json:"rule"`
	Details  string    `json:"details,omitempty"`
	Fatal    bool      `json:"fatal,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
}

// Results are the findings of a theme bucketed by level.
type Results struct {
	Error          []Finding `json:"error"`
	Warning        []Finding `json:"warning"`
	Recommendation []Finding `json:"recommendation"`
	HasFatalErrors bool      `json:"hasFatalErrors"`
}

// Theme is the outcome of checking a theme directory.
type Theme struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// CheckedVersion is the display version, e.g. "5.x".
	CheckedVersion string            `json:"checkedVersion"`
	Pass           []string          `json:"pass"`
	Fail           map[string]Failed `json:"fail"`
	Results        Results           `json:"results"`
}
