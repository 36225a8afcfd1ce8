// Package pipeline wires the theme build steps into a task graph.
//
// Leaf tasks each wrap one step (css, js, copy, check, archive, publish,
// serve and the watchers). Composite tasks sequence them:
//
//	build   = css → js → copy → check
//	zip     = build → archive
//	release = zip → publish
//	watch   = serve ∥ watch-css ∥ watch-js ∥ watch-sources
//	dev     = css → js → copy → watch
package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/themekit/internal/assets"
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/livereload"
	"github.com/leapstack-labs/themekit/internal/release"
	"github.com/leapstack-labs/themekit/internal/task"
	"github.com/leapstack-labs/themekit/internal/watch"
)

// Config holds the resolved settings of every step. Paths inside CSS, JS
// and the copy globs are relative to ThemeDir.
type Config struct {
	ThemeDir string
	MountDir string
	ZipDir   string
	// Purge enables unused-style elimination for production builds.
	Purge bool

	CSS         assets.CSSOptions
	JS          assets.JSOptions
	CopyInclude []string
	CopyExclude []string

	Check compat.Options

	ReloadAddr string
	Debounce   time.Duration

	Release release.Options
}

// Pipeline owns the registry, the runner and the live reload server.
type Pipeline struct {
	cfg       Config
	out       *output.Renderer
	logger    *slog.Logger
	registry  *task.Registry
	runner    *task.Runner
	checker   compat.Checker
	publisher release.Publisher
	alerter   task.Alerter
	reload    *livereload.Server
	runID     string

	mu      sync.Mutex
	archive string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithChecker replaces the built-in compatibility checker.
func WithChecker(c compat.Checker) Option {
	return func(p *Pipeline) { p.checker = c }
}

// WithPublisher replaces the GitHub release publisher.
func WithPublisher(pub release.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithAlerter replaces the terminal alert used in watch mode.
func WithAlerter(a task.Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a pipeline that prints through out.
func New(cfg Config, out *output.Renderer, opts ...Option) (*Pipeline, error) {
	if cfg.ThemeDir == "" {
		return nil, fmt.Errorf("theme dir is not configured")
	}
	p := &Pipeline{
		cfg:      cfg,
		out:      out,
		registry: task.NewRegistry(),
		checker:  compat.NewChecker(),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	p.logger = p.logger.With("run", p.runID)
	if p.alerter == nil {
		p.alerter = NewTerminalAlerter(out)
	}

	p.cfg.CSS.ThemeDir = cfg.ThemeDir
	p.cfg.JS.ThemeDir = cfg.ThemeDir
	p.cfg.Release.ThemeDir = cfg.ThemeDir
	if p.cfg.Release.Logger == nil {
		p.cfg.Release.Logger = p.logger
	}
	if p.cfg.Debounce <= 0 {
		p.cfg.Debounce = watch.DefaultDebounce
	}

	p.reload = livereload.New(livereload.Config{Addr: cfg.ReloadAddr, Logger: p.logger})
	p.runner = task.NewRunner(p.registry, task.Hooks{
		OnStart:  p.onStart,
		OnFinish: p.onFinish,
	}, p.logger)

	if err := p.register(); err != nil {
		return nil, err
	}
	return p, nil
}

// Runner returns the task runner.
func (p *Pipeline) Runner() *task.Runner { return p.runner }

// Registry returns the task registry.
func (p *Pipeline) Registry() *task.Registry { return p.registry }

// ReloadServer returns the live reload server used by the serve task.
func (p *Pipeline) ReloadServer() *livereload.Server { return p.reload }

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string { return p.runID }

func (p *Pipeline) onStart(name string) {
	s := p.out.Styles()
	p.out.LogError(s.Muted.Render(timestamp()), "Starting", "'"+s.TaskName.Render(name)+"'...")
}

func (p *Pipeline) onFinish(name string, elapsed time.Duration, err error) {
	s := p.out.Styles()
	if err != nil {
		p.out.LogError(s.Muted.Render(timestamp()), "'"+s.TaskName.Render(name)+"'", s.Error.Render("errored after"), formatElapsed(elapsed))
		return
	}
	p.out.LogError(s.Muted.Render(timestamp()), "Finished", "'"+s.TaskName.Render(name)+"'", "after", formatElapsed(elapsed))
}

func timestamp() string {
	return "[" + time.Now().Format("15:04:05") + "]"
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d ms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}
