// Package assets compiles theme stylesheets and scripts with esbuild.
package assets

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// DefaultTargets is the browser support list used for prefixing and syntax lowering.
var DefaultTargets = []string{"chrome80", "edge88", "firefox78", "safari13", "ios13"}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var jsTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseEngines converts targets such as "safari13" or "chrome80.1" into
// esbuild engine constraints.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, raw := range targets {
		t := strings.ToLower(strings.TrimSpace(raw))
		i := strings.IndexFunc(t, func(r rune) bool { return r >= '0' && r <= '9' })
		if i <= 0 {
			return nil, fmt.Errorf("invalid browser target %q: expected name followed by version", raw)
		}
		name, ok := engineNames[t[:i]]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in target %q", t[:i], raw)
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}
	return engines, nil
}

// ParseTarget converts a language level such as "es2017" into an esbuild target.
func ParseTarget(s string) (api.Target, error) {
	if s == "" {
		return api.ES2017, nil
	}
	t, ok := jsTargets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown script target %q", s)
	}
	return t, nil
}

// formatMessages renders esbuild diagnostics as file:line:col: text lines.
func formatMessages(msgs []api.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Location != nil {
			fmt.Fprintf(&b, "%s:%d:%d: %s\n", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
		} else {
			fmt.Fprintf(&b, "%s\n", m.Text)
		}
	}
	return b.String()
}
