package compat

import (
	"fmt"
	"slices"
)

// Format buckets the results of t with the embedded rule set.
func Format(t *Theme, opts Options) (*Theme, error) {
	return DefaultRules().Format(t, opts)
}

// Format buckets the failed rules of t by level into t.Results, sorted by
// code. With OnlyFatalErrors only fatal findings are kept. HasFatalErrors
// reflects every failure regardless of filtering.
//
// A failed code missing from the rule set yields an error and empty results.
func (rs *RuleSet) Format(t *Theme, opts Options) (*Theme, error) {
	t.Results = Results{}

	codes := make([]string, 0, len(t.Fail))
	for code := range t.Fail {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	var res Results
	for _, code := range codes {
		rule, ok := rs.Lookup(code)
		if !ok {
			return t, fmt.Errorf("no rule found for code %q", code)
		}
		if rule.Fatal {
			res.HasFatalErrors = true
		}
		if opts.OnlyFatalErrors && !rule.Fatal {
			continue
		}

		f := Finding{
			Code:     code,
			Level:    rule.Level,
			Rule:     rule.Rule,
			Details:  rule.Details,
			Fatal:    rule.Fatal,
			Failures: t.Fail[code].Failures,
		}
		switch rule.Level {
		case LevelError:
			res.Error = append(res.Error, f)
		case LevelWarning:
			res.Warning = append(res.Warning, f)
		default:
			res.Recommendation = append(res.Recommendation, f)
		}
	}

	t.Results = res
	return t, nil
}
