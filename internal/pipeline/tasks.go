package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/leapstack-labs/themekit/internal/assets"
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/fsutil"
	"github.com/leapstack-labs/themekit/internal/mount"
	"github.com/leapstack-labs/themekit/internal/pack"
	"github.com/leapstack-labs/themekit/internal/release"
	"github.com/leapstack-labs/themekit/internal/report"
	"github.com/leapstack-labs/themekit/internal/task"
	"github.com/leapstack-labs/themekit/internal/theme"
	"github.com/leapstack-labs/themekit/internal/watch"
)

// ErrFatalFindings is wrapped by the check task when the theme has fatal
// compatibility errors.
var ErrFatalFindings = errors.New("theme has fatal compatibility errors")

func (p *Pipeline) register() error {
	r := p.registry
	steps := []struct {
		name, desc string
		fn         task.Func
	}{
		{"css", "Compile the stylesheet with imports, nesting and prefixes", p.css},
		{"js", "Bundle and minify the theme scripts", p.js},
		{"copy", "Copy templates and built assets into the mount dir", p.copySources},
		{"check", "Check the theme for compatibility issues", p.checkTheme},
		{"archive", "Package the theme into zip/<name>.zip", p.archiveTheme},
		{"publish", "Update the changelog and draft a GitHub release", p.publish},
		{"serve", "Serve the live reload stream", p.serve},
		{"watch-css", "Rebuild styles when they change", p.watcher("watch-css", p.cssGlobs(), "css")},
		{"watch-js", "Rebuild scripts when they change", p.watcher("watch-js", p.jsGlobs(), "js")},
		{"watch-sources", "Copy changed sources and reload browsers", p.sourcesWatcher()},
	}
	for _, s := range steps {
		if err := r.Register(s.name, s.desc, s.fn); err != nil {
			return err
		}
	}

	composites := []struct {
		name, desc string
		parallel   bool
		steps      []string
	}{
		{"build", "Build assets, copy them and check the theme", false, []string{"css", "js", "copy", "check"}},
		{"zip", "Build and package the theme", false, []string{"build", "archive"}},
		{"release", "Package the theme and publish a release", false, []string{"zip", "publish"}},
		{"watch", "Serve live reload and run every watcher", true, []string{"serve", "watch-css", "watch-js", "watch-sources"}},
		{"dev", "Build once, then watch and live reload", false, []string{"css", "js", "copy", "watch"}},
		{"default", "Alias for dev", false, []string{"dev"}},
	}
	for _, c := range composites {
		var err error
		if c.parallel {
			err = r.Parallel(c.name, c.desc, c.steps...)
		} else {
			err = r.Series(c.name, c.desc, c.steps...)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) css(_ context.Context) error {
	opts := p.cfg.CSS
	opts.Purge = p.cfg.Purge
	if opts.Purge && len(opts.Content.Include) == 0 {
		opts.Content = assets.DefaultContent
	}
	res, err := assets.BuildCSS(opts)
	if err != nil {
		return fmt.Errorf("css: %w", err)
	}
	for _, w := range res.Warnings {
		p.logger.Warn("css warning", "message", w)
	}
	p.logger.Info("stylesheet built",
		"files", relAll(p.cfg.ThemeDir, res.Files),
		"size", byteSize(int64(res.Bytes)),
		"purged", res.Purged)
	return nil
}

func (p *Pipeline) js(_ context.Context) error {
	res, err := assets.BuildJS(p.cfg.JS)
	if err != nil {
		return fmt.Errorf("js: %w", err)
	}
	if len(res.Files) == 0 {
		p.logger.Info("no scripts to bundle", "dir", p.cfg.JS.SourceDir)
		return nil
	}
	for _, w := range res.Warnings {
		p.logger.Warn("js warning", "message", w)
	}
	p.logger.Info("scripts bundled",
		"files", relAll(p.cfg.ThemeDir, res.Files),
		"size", byteSize(int64(res.Bytes)))
	return nil
}

func (p *Pipeline) mountOptions() mount.Options {
	return mount.Options{
		ThemeDir: p.cfg.ThemeDir,
		MountDir: p.cfg.MountDir,
		Include:  p.cfg.CopyInclude,
		Exclude:  p.cfg.CopyExclude,
	}
}

func (p *Pipeline) copySources(ctx context.Context) error {
	res, err := mount.Copy(ctx, p.mountOptions(), p.cfg.ZipDir)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	p.logger.Info("sources copied",
		"mount", p.cfg.MountDir,
		"files", len(res.Files),
		"size", byteSize(res.Bytes))
	return nil
}

// checkOptions leaves the mount and zip dirs out of the scan so copied
// templates are not reported twice.
func (p *Pipeline) checkOptions() compat.Options {
	opts := p.cfg.Check
	skip := append([]string{}, opts.Skip...)
	for _, dir := range []string{p.cfg.MountDir, p.cfg.ZipDir} {
		if rel := fsutil.RelTo(p.cfg.ThemeDir, dir); rel != "" {
			skip = append(skip, rel+"/**")
		}
	}
	opts.Skip = skip
	return opts
}

func (p *Pipeline) checkTheme(ctx context.Context) error {
	opts := p.checkOptions()
	result, err := p.checker.Check(ctx, p.cfg.ThemeDir, opts)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	if p.out.EffectiveMode() == output.ModeJSON {
		if _, err := compat.Format(result, opts); err != nil {
			p.logger.Error("failed to format results", "error", err)
		}
		if err := p.out.JSON(result); err != nil {
			return err
		}
	} else {
		report.PrintResults(result, opts, p.out)
	}

	if result.Results.HasFatalErrors {
		return &task.PluginError{Plugin: "compat", Err: ErrFatalFindings}
	}
	return nil
}

func (p *Pipeline) archiveName() (string, error) {
	m, err := theme.LoadManifest(p.cfg.ThemeDir)
	if err != nil {
		return "", err
	}
	return m.ArchiveName(), nil
}

func (p *Pipeline) archiveTheme(ctx context.Context) error {
	name, err := p.archiveName()
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	res, err := pack.Archive(ctx, pack.Options{
		ThemeDir: p.cfg.ThemeDir,
		ZipDir:   p.cfg.ZipDir,
		Name:     name,
	}, p.cfg.MountDir)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	p.mu.Lock()
	p.archive = res.Path
	p.mu.Unlock()

	p.logger.Info("theme packaged", "path", res.Path, "files", res.Files, "size", byteSize(res.Size))
	p.out.Success(fmt.Sprintf("Packaged %s (%s)", relTo(p.cfg.ThemeDir, res.Path), byteSize(res.Size)))
	return nil
}

func (p *Pipeline) publish(ctx context.Context) error {
	opts := p.cfg.Release
	p.mu.Lock()
	opts.Archive = p.archive
	p.mu.Unlock()

	if opts.Archive == "" {
		if name, err := p.archiveName(); err == nil {
			opts.Archive = filepath.Join(p.cfg.ZipDir, name)
		}
	}

	out, err := release.Run(ctx, opts, p.publisher)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if out == nil {
		p.out.Warning("Release skipped: set a manifest version and GitHub credentials (github.username, github.token in " +
			".themekit.local.yaml or THEMEKIT_GITHUB__TOKEN).")
		return nil
	}
	p.out.Success("Drafted release " + out.URL)
	return nil
}

func (p *Pipeline) serve(ctx context.Context) error {
	return p.reload.Serve(ctx)
}

func (p *Pipeline) cssGlobs() []string {
	dir := path.Dir(filepath.ToSlash(p.cfg.CSS.Entry))
	return []string{path.Join(dir, "**/*.css")}
}

func (p *Pipeline) jsGlobs() []string {
	return []string{path.Join(filepath.ToSlash(p.cfg.JS.SourceDir), "**/*.js")}
}

// watchExclude keeps dev dirs and the output dirs out of every watcher.
func (p *Pipeline) watchExclude() []string {
	return mount.Matcher(p.mountOptions(), p.cfg.ZipDir).Exclude
}

// watcher returns a task that reruns target whenever include matches a
// change.
func (p *Pipeline) watcher(name string, include []string, target string) task.Func {
	return func(ctx context.Context) error {
		w := &watch.Watcher{
			Name:     name,
			Root:     p.cfg.ThemeDir,
			Include:  include,
			Exclude:  p.watchExclude(),
			Debounce: p.cfg.Debounce,
			Run: func(ctx context.Context, _ []string) error {
				return p.runner.Run(ctx, target)
			},
			OnFailure: func(err error) { p.alerter.Alert(target, err) },
			Logger:    p.logger,
		}
		return w.Watch(ctx)
	}
}

// sourcesWatcher copies changed templates and built assets into the mount
// dir, then reloads browsers. Built assets are written by the css and js
// watchers, so a style edit reaches the browser through this watcher.
func (p *Pipeline) sourcesWatcher() task.Func {
	return func(ctx context.Context) error {
		m := mount.Matcher(p.mountOptions(), p.cfg.ZipDir)
		w := &watch.Watcher{
			Name:     "watch-sources",
			Root:     p.cfg.ThemeDir,
			Include:  m.Include,
			Exclude:  m.Exclude,
			Debounce: p.cfg.Debounce,
			Run: func(ctx context.Context, _ []string) error {
				return p.runner.Run(ctx, "copy")
			},
			OnSuccess: func(changed []string) {
				p.reload.Reload(fmt.Sprintf("%d file(s) changed", len(changed)))
			},
			OnFailure: func(err error) { p.alerter.Alert("copy", err) },
			Logger:    p.logger,
		}
		return w.Watch(ctx)
	}
}

func byteSize(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}

func relAll(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = relTo(base, p)
	}
	return out
}

func relTo(base, target string) string {
	if rel, err := filepath.Rel(base, target); err == nil {
		return filepath.ToSlash(rel)
	}
	return target
}
