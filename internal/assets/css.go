package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// Result describes one compiled asset.
type Result struct {
	// Files are the absolute paths written, output first.
	Files    []string
	Bytes    int
	Warnings []string
	// Purged is the number of style rules removed in purge mode.
	Purged int
}

// CSSOptions configures the stylesheet build.
type CSSOptions struct {
	ThemeDir string
	// Entry is the stylesheet entry point relative to ThemeDir.
	Entry string
	// OutDir is the built-assets directory relative to ThemeDir.
	OutDir  string
	Targets []string
	Minify  bool

	// Purge drops rules whose classes are not referenced by Content files.
	Purge    bool
	Content  fsutil.Matcher
	Safelist []string
}

// Static file references stay as written; the built directory sits at the
// same depth as the source directory so relative urls keep resolving.
var staticExternals = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.webp", "*.avif", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
}

// BuildCSS compiles the stylesheet entry with its imports into OutDir.
func BuildCSS(opts CSSOptions) (*Result, error) {
	engines, err := ParseEngines(opts.Targets)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(opts.ThemeDir)
	if err != nil {
		return nil, err
	}
	entry := filepath.Join(root, filepath.FromSlash(opts.Entry))
	if _, err := os.Stat(entry); err != nil {
		return nil, fmt.Errorf("stylesheet entry: %w", err)
	}
	outDir := filepath.Join(root, filepath.FromSlash(opts.OutDir))

	buildOpts := api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: root,
		Bundle:        true,
		Write:         false,
		Outdir:        outDir,
		Loader:        map[string]api.Loader{".css": api.LoaderCSS},
		External:      staticExternals,
		Engines:       engines,
		Sourcemap:     api.SourceMapLinked,
		LogLevel:      api.LogLevelSilent,
	}
	if opts.Purge {
		buildOpts.Sourcemap = api.SourceMapNone
	} else if opts.Minify {
		buildOpts.MinifyWhitespace = true
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
		contents := file.Contents
		if opts.Purge && filepath.Ext(file.Path) == ".css" {
			contents, out.Purged, err = purgeAndMinify(root, contents, opts, engines)
			if err != nil {
				return nil, err
			}
		}
		if err := fsutil.WriteFile(file.Path, contents, 0o644); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, file.Path)
		out.Bytes += len(contents)
	}

	if opts.Purge {
		// A map left over from a development build would point at stale code.
		for _, f := range out.Files {
			if err := os.Remove(f + ".map"); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}
	return out, nil
}

func purgeAndMinify(root string, css []byte, opts CSSOptions, engines []api.Engine) ([]byte, int, error) {
	used, err := CollectClasses(root, opts.Content)
	if err != nil {
		return nil, 0, fmt.Errorf("collect classes: %w", err)
	}
	for _, s := range opts.Safelist {
		used[s] = struct{}{}
	}
	purged, removed := Purge(string(css), used)

	result := api.Transform(purged, api.TransformOptions{
		Loader:           api.LoaderCSS,
		Engines:          engines,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, 0, fmt.Errorf("esbuild errors:\n%s", formatMessages(result.Errors))
	}
	return result.Code, removed, nil
}
