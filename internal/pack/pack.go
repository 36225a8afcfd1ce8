// Package pack builds the distributable theme archive.
package pack

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zip"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// DefaultExclude lists paths never packed.
var DefaultExclude = []string{
	"node_modules/**",
	".git/**",
	".env",
	".themekit.local.yaml",
	"**/.DS_Store",
}

// Options configures an archive.
type Options struct {
	ThemeDir string
	// ZipDir receives the archive. When inside ThemeDir it is excluded.
	ZipDir string
	// Name is the archive file name, e.g. "starter.zip".
	Name    string
	Exclude []string
}

// Result describes a written archive.
type Result struct {
	Path  string
	Size  int64
	Files int
}

// Archive zips the theme into ZipDir/Name, replacing any previous archive
// atomically. Directories passed as skipDirs (the mount dir) are excluded
// alongside ZipDir.
func Archive(ctx context.Context, opts Options, skipDirs ...string) (*Result, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("archive name is empty")
	}
	exclude := append([]string{}, DefaultExclude...)
	exclude = append(exclude, opts.Exclude...)
	for _, dir := range append([]string{opts.ZipDir}, skipDirs...) {
		if rel := fsutil.RelTo(opts.ThemeDir, dir); rel != "" {
			exclude = append(exclude, rel+"/**")
		}
	}
	m := fsutil.Matcher{Exclude: exclude}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.ZipDir, 0o750); err != nil {
		return nil, fmt.Errorf("create zip dir: %w", err)
	}
	dest := filepath.Join(opts.ZipDir, opts.Name)

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	zw := zip.NewWriter(pending)
	res := &Result{Path: dest}
	err = fsutil.Walk(opts.ThemeDir, m, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(zw, opts.ThemeDir, rel, d); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		res.Files++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	info, err := pending.Stat()
	if err != nil {
		return nil, err
	}
	res.Size = info.Size()

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("replace archive: %w", err)
	}
	return res, nil
}

func addFile(zw *zip.Writer, root, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = rel
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // G304: rel comes from walking root
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(w, f)
	return err
}
