package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/mholt/archiver/v4"
)

// ErrUnknownArchive is returned when the archive format cannot be identified
// from the file name and leading bytes.
var ErrUnknownArchive = errors.Sentinel("archive: unknown or unsupported archive format")

// Extract unpacks the archive at src into dir, creating dir if needed. The
// format is inferred from the file, not its extension alone. Entry paths that
// would escape dir are rejected.
func Extract(ctx context.Context, src string, dir string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	format, input, err := archiver.Identify(filepath.Base(src), f)
	if err != nil {
		if errors.Is(err, archiver.ErrNoMatch) {
			return ErrUnknownArchive
		}
		return errors.WithStack(err)
	}

	ex, ok := format.(archiver.Extractor)
	if !ok {
		return ErrUnknownArchive
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	root := filepath.Clean(dir)

	return ex.Extract(ctx, input, nil, func(ctx context.Context, f archiver.File) error {
		if f.IsDir() {
			return nil
		}
		p := filepath.Join(root, entryName(f))
		if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
			return errors.Errorf("archive: entry '%s' escapes the destination directory", f.Name())
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return errors.WithStack(err)
		}
		r, err := f.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		defer r.Close()
		w, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
		if err != nil {
			return errors.WithStack(err)
		}
		defer w.Close()
		if _, err := io.Copy(w, r); err != nil {
			return errors.WithStack(err)
		}
		return os.Chtimes(p, f.ModTime(), f.ModTime())
	})
}

// entryName determines the stored path for an archive element. The underlying
// header types expose the nested path; archiver.File#Name() alone only returns
// the basename for some formats.
func entryName(f archiver.File) string {
	sys := f.Sys()
	if sys == nil {
		return f.Name()
	}
	switch s := sys.(type) {
	case *tar.Header:
		return s.Name
	case *zip.FileHeader:
		return s.Name
	case *gzip.Header:
		return s.Name
	default:
		return f.Name()
	}
}
