// Package mount copies the runtime files of a theme into the deployment mount.
package mount

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// DefaultInclude lists the files a running site needs.
var DefaultInclude = []string{
	"**/*.hbs",
	"assets/built/**",
	"assets/images/**",
	"assets/fonts/**",
	"package.json",
	"locales/**",
}

// DefaultExclude lists paths never copied.
var DefaultExclude = []string{"node_modules/**", ".git/**"}

// Options configures a copy.
type Options struct {
	ThemeDir string
	// MountDir is the destination. It may live inside ThemeDir.
	MountDir string
	Include  []string
	Exclude  []string
}

// Result summarises a copy.
type Result struct {
	Files []string
	Bytes int64
}

// Matcher returns the glob set used for opts, with the mount dir and any
// extra dirs inside the theme excluded.
func Matcher(opts Options, extraDirs ...string) fsutil.Matcher {
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	exclude := append([]string{}, DefaultExclude...)
	exclude = append(exclude, opts.Exclude...)
	for _, dir := range append([]string{opts.MountDir}, extraDirs...) {
		if rel := fsutil.RelTo(opts.ThemeDir, dir); rel != "" {
			exclude = append(exclude, rel+"/**")
		}
	}
	return fsutil.Matcher{Include: include, Exclude: exclude}
}

// Copy mirrors the matched theme files into the mount dir. Existing files
// are replaced atomically; files no longer present in the theme are left.
func Copy(ctx context.Context, opts Options, extraDirs ...string) (*Result, error) {
	if opts.MountDir == "" {
		return nil, fmt.Errorf("mount dir is not configured")
	}
	m := Matcher(opts, extraDirs...)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	err := fsutil.Walk(opts.ThemeDir, m, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		src := filepath.Join(opts.ThemeDir, filepath.FromSlash(rel))
		dst := filepath.Join(opts.MountDir, filepath.FromSlash(rel))
		if err := fsutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		if info, err := d.Info(); err == nil {
			res.Bytes += info.Size()
		}
		res.Files = append(res.Files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
