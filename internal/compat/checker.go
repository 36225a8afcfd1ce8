package compat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"sort"

	"github.com/leapstack-labs/themekit/internal/fsutil"
	"github.com/leapstack-labs/themekit/internal/theme"
)

// Checker validates a theme directory.
type Checker interface {
	Check(ctx context.Context, dir string, opts Options) (*Theme, error)
}

// DefaultSkip lists paths that never belong to the theme under check.
var DefaultSkip = []string{"node_modules/**", ".git/**", "bower_components/**"}

// themeFiles is the loaded view of a theme the checks run against.
type themeFiles struct {
	manifest    *theme.Manifest
	manifestErr error
	// templates maps slash paths to template source.
	templates map[string]string
}

func (f *themeFiles) hasTemplate(rel string) bool {
	_, ok := f.templates[rel]
	return ok
}

func (f *themeFiles) sortedTemplates() []string {
	names := make([]string, 0, len(f.templates))
	for name := range f.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type check func(*themeFiles) []Failure

// RuleChecker runs the built-in checks of a rule set.
type RuleChecker struct {
	rules  *RuleSet
	checks map[string]check
}

// NewChecker returns a checker over the embedded rule set.
func NewChecker() *RuleChecker {
	return NewRuleChecker(DefaultRules())
}

// NewRuleChecker returns a checker over rules. Codes without a built-in
// check are never reported.
func NewRuleChecker(rules *RuleSet) *RuleChecker {
	return &RuleChecker{rules: rules, checks: builtinChecks()}
}

// Rules returns the checker's rule set.
func (c *RuleChecker) Rules() *RuleSet { return c.rules }

// Check loads the theme in dir and records every applicable rule as passed
// or failed. It does not bucket the results; see Format.
func (c *RuleChecker) Check(ctx context.Context, dir string, opts Options) (*Theme, error) {
	key, display, err := c.rules.ResolveVersion(opts.CheckVersion)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("theme dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("theme dir %s is not a directory", dir)
	}

	files, err := loadTheme(ctx, dir, opts.Skip)
	if err != nil {
		return nil, err
	}

	t := &Theme{
		Name:           filepath.Base(dir),
		Path:           dir,
		CheckedVersion: display,
		Fail:           make(map[string]Failed),
	}
	if files.manifest != nil && files.manifest.Name != "" {
		t.Name = files.manifest.Name
	}

	for _, rule := range c.rules.Rules {
		run, ok := c.checks[rule.Code]
		if !ok || !rule.AppliesTo(key) {
			continue
		}
		if failures := run(files); len(failures) > 0 {
			t.Fail[rule.Code] = Failed{Failures: failures}
		} else {
			t.Pass = append(t.Pass, rule.Code)
		}
	}
	slices.Sort(t.Pass)
	return t, nil
}

func loadTheme(ctx context.Context, dir string, skip []string) (*themeFiles, error) {
	files := &themeFiles{templates: make(map[string]string)}

	files.manifest, files.manifestErr = theme.LoadManifest(dir)

	m := fsutil.Matcher{
		Include: []string{"**/*.hbs"},
		Exclude: append(append([]string{}, DefaultSkip...), skip...),
	}
	err := fsutil.Walk(dir, m, func(rel string, _ fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) //nolint:gosec // G304: rel comes from walking dir
		if err != nil {
			return err
		}
		files.templates[rel] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load theme: %w", err)
	}
	return files, nil
}

var (
	namePattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	ghostHeadPattern = regexp.MustCompile(`\{\{\s*ghost_head\s*\}\}`)
	ghostFootPattern = regexp.MustCompile(`\{\{\s*ghost_foot\s*\}\}`)
	rawAssetPattern  = regexp.MustCompile(`(?:href|src)=["']/?assets/`)
	pageURLPattern   = regexp.MustCompile(`\{\{\s*pageUrl\b`)
	blogPattern      = regexp.MustCompile(`@blog\.`)
	siteLangPattern  = regexp.MustCompile(`@site\.lang\b`)
	authorPattern    = regexp.MustCompile(`\{\{[#/]?\s*author\b`)
)

func builtinChecks() map[string]check {
	return map[string]check{
		"GS010-PJ-REQ": func(f *themeFiles) []Failure {
			if errors.Is(f.manifestErr, theme.ErrManifestNotFound) {
				return []Failure{{Ref: theme.ManifestFile, Message: "package.json file not found"}}
			}
			return nil
		},
		"GS010-PJ-PARSE": func(f *themeFiles) []Failure {
			if f.manifestErr != nil && !errors.Is(f.manifestErr, theme.ErrManifestNotFound) {
				return []Failure{{Ref: theme.ManifestFile, Message: f.manifestErr.Error()}}
			}
			return nil
		},
		"GS010-PJ-NAME-REQ": manifestCheck(func(m *theme.Manifest) string {
			if m.Name == "" {
				return "name is missing"
			}
			return ""
		}),
		"GS010-PJ-NAME-LC": manifestCheck(func(m *theme.Manifest) string {
			if m.Name != "" && !namePattern.MatchString(m.Name) {
				return fmt.Sprintf("name %q is not lowercase and hyphenated", m.Name)
			}
			return ""
		}),
		"GS010-PJ-VERSION-SEM": manifestCheck(func(m *theme.Manifest) string {
			if !m.HasValidVersion() {
				return fmt.Sprintf("version %q is not semver", m.Version)
			}
			return ""
		}),
		"GS010-PJ-GHOST-ENGINE": manifestCheck(func(m *theme.Manifest) string {
			if m.Engines["ghost"] == "" {
				return "engines.ghost is missing"
			}
			return ""
		}),
		"GS010-PJ-CONF-PPP": manifestCheck(func(m *theme.Manifest) string {
			if n, ok := m.Config["posts_per_page"].(float64); !ok || n <= 0 {
				return "config.posts_per_page is missing or not a positive number"
			}
			return ""
		}),
		"GS020-INDEX-REQ":      requiredTemplate("index.hbs"),
		"GS020-POST-REQ":       requiredTemplate("post.hbs"),
		"GS020-DEF-REC":        requiredTemplate("default.hbs"),
		"GS040-GH-REQ":         helperPresent(ghostHeadPattern, "{{ghost_head}}"),
		"GS040-GF-REQ":         helperPresent(ghostFootPattern, "{{ghost_foot}}"),
		"GS030-ASSET-REQ":      forbidden(rawAssetPattern, "raw asset path"),
		"GS001-DEPR-PURL":      forbidden(pageURLPattern, "{{pageUrl}} is used"),
		"GS001-DEPR-BLOG":      forbidden(blogPattern, "@blog is used"),
		"GS001-DEPR-SITE-LANG": forbidden(siteLangPattern, "@site.lang is used"),
		"GS001-DEPR-AUTH":      forbidden(authorPattern, "{{author}} is used"),
	}
}

// manifestCheck adapts a manifest predicate returning a failure message.
// It passes when the manifest could not be loaded; that has its own rules.
func manifestCheck(fn func(*theme.Manifest) string) check {
	return func(f *themeFiles) []Failure {
		if f.manifest == nil {
			return nil
		}
		if msg := fn(f.manifest); msg != "" {
			return []Failure{{Ref: theme.ManifestFile, Message: msg}}
		}
		return nil
	}
}

func requiredTemplate(name string) check {
	return func(f *themeFiles) []Failure {
		if f.hasTemplate(name) {
			return nil
		}
		return []Failure{{Ref: name, Message: name + " not found"}}
	}
}

// helperPresent fails when no template uses the helper. The failure points
// at the layout when there is one.
func helperPresent(re *regexp.Regexp, helper string) check {
	return func(f *themeFiles) []Failure {
		for _, src := range f.templates {
			if re.MatchString(src) {
				return nil
			}
		}
		ref := "default.hbs"
		if !f.hasTemplate(ref) {
			ref = "index.hbs"
		}
		return []Failure{{Ref: ref, Message: helper + " not found in any template"}}
	}
}

// forbidden reports every template that matches re, with its line.
func forbidden(re *regexp.Regexp, what string) check {
	return func(f *themeFiles) []Failure {
		var failures []Failure
		for _, name := range f.sortedTemplates() {
			src := f.templates[name]
			if loc := re.FindStringIndex(src); loc != nil {
				line := 1 + countNewlines(src[:loc[0]])
				failures = append(failures, Failure{
					Ref:     path.Clean(name),
					Message: fmt.Sprintf("%s on line %d", what, line),
				})
			}
		}
		return failures
	}
}

func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
