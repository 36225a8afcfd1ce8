package compat

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule describes one compatibility requirement.
type Rule struct {
	Code    string `yaml:"code"`
	Level   Level  `yaml:"level"`
	Rule    string `yaml:"rule"`
	Details string `yaml:"details"`
	Fatal   bool   `yaml:"fatal"`
	// Versions limits the rule to the listed version keys. Empty means all.
	Versions []string `yaml:"versions"`
}

// AppliesTo reports whether the rule is checked for version key v.
func (r Rule) AppliesTo(v string) bool {
	return len(r.Versions) == 0 || slices.Contains(r.Versions, v)
}

// RuleSet is the rule catalogue with its version table.
type RuleSet struct {
	Versions map[string]string `yaml:"versions"`
	Default  string            `yaml:"default"`
	Rules    []Rule            `yaml:"rules"`

	byCode map[string]Rule
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rs RuleSet
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if _, ok := rs.Versions[rs.Default]; !ok {
		return nil, fmt.Errorf("default version %q is not in the version table", rs.Default)
	}

	rs.byCode = make(map[string]Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		switch r.Level {
		case LevelError, LevelWarning, LevelRecommendation:
		default:
			return nil, fmt.Errorf("rule %s: unknown level %q", r.Code, r.Level)
		}
		if _, dup := rs.byCode[r.Code]; dup {
			return nil, fmt.Errorf("rule %s: duplicate code", r.Code)
		}
		for _, v := range r.Versions {
			if _, ok := rs.Versions[v]; !ok {
				return nil, fmt.Errorf("rule %s: unknown version %q", r.Code, v)
			}
		}
		rs.byCode[r.Code] = r
	}
	return &rs, nil
}

var (
	builtinOnce  sync.Once
	builtinRules *RuleSet
)

// DefaultRules returns the embedded rule set.
func DefaultRules() *RuleSet {
	builtinOnce.Do(func() {
		rs, err := ParseRules(defaultRules)
		if err != nil {
			panic(fmt.Sprintf("embedded rules: %v", err))
		}
		builtinRules = rs
	})
	return builtinRules
}

// Lookup returns the rule for code.
func (rs *RuleSet) Lookup(code string) (Rule, bool) {
	r, ok := rs.byCode[code]
	return r, ok
}

// ResolveVersion maps a version key to its display form. An empty key
// selects the default version.
func (rs *RuleSet) ResolveVersion(key string) (string, string, error) {
	if key == "" {
		key = rs.Default
	}
	display, ok := rs.Versions[key]
	if !ok {
		return "", "", fmt.Errorf("unknown check version %q (expected one of %v)", key, rs.VersionKeys())
	}
	return key, display, nil
}

// VersionKeys returns the known version keys, sorted.
func (rs *RuleSet) VersionKeys() []string {
	keys := make([]string, 0, len(rs.Versions))
	for k := range rs.Versions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
