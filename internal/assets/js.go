package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// JSOptions configures the script bundle.
type JSOptions struct {
	ThemeDir string
	// SourceDir holds the scripts, relative to ThemeDir.
	SourceDir string
	// OutFile is the bundle path relative to ThemeDir.
	OutFile string
	Target  string
	Targets []string
	Minify  bool
}

// BuildJS concatenates every script under SourceDir in lexical order into a
// single minified bundle with a linked source map. A theme without scripts
// yields an empty Result.
func BuildJS(opts JSOptions) (*Result, error) {
	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}
	engines, err := ParseEngines(opts.Targets)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(opts.ThemeDir)
	if err != nil {
		return nil, err
	}
	srcDir := filepath.Join(root, filepath.FromSlash(opts.SourceDir))

	sources, err := scriptSources(srcDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &Result{}, nil
	}

	// Scripts share one global scope, so they are joined as plain script
	// text rather than bundled as modules.
	var joined strings.Builder
	for i, rel := range sources {
		data, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(rel))) //nolint:gosec // theme sources
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", rel, err)
		}
		if i > 0 {
			joined.WriteString("\n")
		}
		joined.Write(data)
	}

	buildOpts := api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   joined.String(),
			ResolveDir: srcDir,
			Sourcefile: path.Base(filepath.ToSlash(opts.OutFile)),
			Loader:     api.LoaderJS,
		},
		AbsWorkingDir: root,
		Bundle:        false,
		Write:         false,
		Outfile:       filepath.Join(root, filepath.FromSlash(opts.OutFile)),
		Platform:      api.PlatformBrowser,
		Target:        target,
		Engines:       engines,
		Sourcemap:     api.SourceMapLinked,
		LogLevel:      api.LogLevelSilent,
	}
	if opts.Minify {
		buildOpts.MinifyWhitespace = true
		buildOpts.MinifyIdentifiers = true
		buildOpts.MinifySyntax = true
	}

	result := api.Build(buildOpts)
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("esbuild errors:\n%s", formatMessages(result.Errors))
	}

	out := &Result{}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, strings.TrimSpace(formatMessages([]api.Message{w})))
	}
	for _, file := range result.OutputFiles {
		if err := fsutil.WriteFile(file.Path, file.Contents, 0o644); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, file.Path)
		out.Bytes += len(file.Contents)
	}
	return out, nil
}

// scriptSources lists the .js files under dir as slash paths relative to it.
func scriptSources(dir string) ([]string, error) {
	var sources []string
	err := fsutil.Walk(dir, fsutil.Matcher{Include: []string{"**/*.js"}}, func(rel string, _ fs.DirEntry) error {
		sources = append(sources, path.Clean(rel))
		return nil
	})
	sort.Strings(sources)
	if err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return sources, nil
}
