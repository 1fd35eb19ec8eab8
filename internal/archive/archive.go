// Package archive bundles pipeline inputs into tar.gz archives and restores
// them. It backs the "scratch save" and "scratch restore" commands, which
// preserve the inputs of a failed run for later inspection.
package archive

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/karrick/godirwalk"
	"github.com/klauspost/pgzip"
)

// Archive creates a gzipped tarball from a fixed list of files and
// directories. Directory inputs are walked recursively; every entry is stored
// under the basename of the input that contributed it.
type Archive struct {
	// Files is the list of absolute paths to include.
	Files []string
}

// Create writes the archive to dst. The context is checked between inputs so
// a canceled save does not keep walking large directory trees.
func (a *Archive) Create(ctx context.Context, dst string) error {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.WrapIf(err, "archive: failed to open archive for writing")
	}
	defer f.Close()

	gw, _ := pgzip.NewWriterLevel(f, pgzip.BestSpeed)
	_ = gw.SetConcurrency(1<<20, 1)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, in := range a.Files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		in = filepath.Clean(in)
		s, err := os.Lstat(in)
		if err != nil {
			return errors.WrapIff(err, "archive: failed to stat input '%s'", in)
		}
		if !s.IsDir() {
			if err := a.addToArchive(in, filepath.Base(in), tw); err != nil {
				return err
			}
			continue
		}

		base := filepath.Dir(in)
		err = godirwalk.Walk(in, &godirwalk.Options{
			FollowSymbolicLinks: false,
			Unsorted:            true,
			Callback: func(p string, de *godirwalk.Dirent) error {
				// Directories are materialized implicitly by their children.
				if de.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(base, p)
				if err != nil {
					return errors.WithStack(err)
				}
				return a.addToArchive(p, filepath.ToSlash(rel), tw)
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// addToArchive writes a single file entry to the archive under the relative
// name rp.
func (a *Archive) addToArchive(p string, rp string, w *tar.Writer) error {
	// Lstat so symlinks are recorded as links rather than pulling in targets
	// that may live outside the inputs being saved.
	s, err := os.Lstat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIff(err, "archive: failed executing os.Lstat on '%s'", rp)
	}

	// Sockets are unsupported by archive/tar.
	if s.Mode()&fs.ModeSocket != 0 {
		return nil
	}

	var target string
	if s.Mode()&fs.ModeSymlink != 0 {
		target, err = os.Readlink(p)
		if err != nil {
			if !os.IsNotExist(err) {
				log.WithField("path", rp).WithField("error", err.Error()).Warn("failed reading symlink target; skipping")
			}
			return nil
		}
	}

	header, err := tar.FileInfoHeader(s, filepath.ToSlash(target))
	if err != nil {
		return errors.WrapIff(err, "archive: failed to get tar#FileInfoHeader for '%s'", rp)
	}
	if s.Mode()&fs.ModeSymlink == 0 {
		header.Name = rp
	}

	if err := w.WriteHeader(header); err != nil {
		return errors.WrapIff(err, "archive: failed to write tar#FileInfoHeader for '%s'", rp)
	}
	if header.Size < 1 {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return errors.WrapIff(err, "archive: failed to open '%s' for reading", rp)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return errors.WrapIff(err, "archive: failed to copy '%s' into archive", rp)
	}
	return nil
}
