// Package scratch implements a hierarchical, bounded fan-out allocator for
// temporary files and directories. Entries are handed out from a tree of
// directories with a fixed branching factor so that no single directory ever
// accumulates more entries than a filesystem can list efficiently, and tree
// branches are reclaimed lazily as entries are destroyed.
//
// A Tree is NOT safe for concurrent use by multiple goroutines or processes
// sharing a root: the ascend-then-recount step is a check-then-act sequence
// and the marker files are advisory annotations, not locks. Callers must
// serialize access to a single writer per root.
package scratch

import (
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/cvaske/sonLib/system"
)

// MarkerName is the advisory marker file written into every directory the
// cursor is still filling. External inspectors rely on the literal name.
const MarkerName = "lock"

const (
	namePrefix       = "tmp_"
	randomNameLength = 10
)

type Tree struct {
	// The root directory all temporary entries are created beneath.
	root string

	// filesPerDir is the branching factor B; levels is the depth D. The tree
	// holds at most filesPerDir^levels leaf entries.
	filesPerDir int
	levels      int

	// The allocation cursor: the directory currently being filled, its depth
	// below the root, and the number of entries it holds (marker included).
	dir   string
	level int
	count int

	// Lifetime counters for this instance only. Diagnostic, not persisted.
	created   uint64
	destroyed uint64

	log *log.Entry
}

type Option func(*Tree)

// WithLogger replaces the diagnostic sink used by the tree. The allocator
// never depends on the sink for correctness.
func WithLogger(l *log.Entry) Option {
	return func(t *Tree) {
		t.log = l
	}
}

// New returns a Tree rooted at the given directory, creating the root and its
// marker if it does not exist yet. If the root already exists the cursor count
// is seeded from its current occupancy.
func New(root string, filesPerDir int, levels int, opts ...Option) (*Tree, error) {
	if filesPerDir < 1 || levels < 1 {
		return nil, newInvalidArgument(root)
	}

	t := &Tree{
		root:        filepath.Clean(root),
		filesPerDir: filesPerDir,
		levels:      levels,
	}
	t.dir = t.root
	t.level = 0

	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = log.WithField("subsystem", "scratch").WithField("root", t.root)
	}

	if st, err := os.Stat(t.root); err != nil {
		if !os.IsNotExist(err) {
			return nil, wrapIOError(err, t.root)
		}
		if err := os.MkdirAll(t.root, 0o755); err != nil {
			return nil, wrapIOError(err, t.root)
		}
		if err := t.writeMarker(t.root); err != nil {
			return nil, err
		}
		t.count = 1
	} else if !st.IsDir() {
		return nil, newInvalidArgument(t.root)
	} else {
		entries, err := os.ReadDir(t.root)
		if err != nil {
			return nil, wrapIOError(err, t.root)
		}
		t.count = len(entries)
	}

	if existing, err := t.ListAll(); err == nil {
		t.log.WithFields(log.Fields{
			"entries":  len(existing),
			"capacity": t.Capacity(),
		}).Info("configured temporary file tree")
	}

	return t, nil
}

// Path returns the root path of the tree.
func (t *Tree) Path() string {
	return t.root
}

// Capacity returns the theoretical number of leaf entries this tree can hold.
func (t *Tree) Capacity() int {
	c := 1
	for i := 0; i < t.levels; i++ {
		c *= t.filesPerDir
	}
	return c
}

// Stats returns the number of entries created and destroyed over the lifetime
// of this instance.
func (t *Tree) Stats() (created, destroyed uint64) {
	return t.created, t.destroyed
}

// Allocate creates and returns a new temporary entry. The entry is a
// directory when wantDir is true, otherwise an empty file carrying the given
// name suffix. The caller owns the returned path until it is passed back to
// Destroy.
//
// Allocation walks the cursor depth-first: each interior directory is filled
// left to right with fresh branches, and once a directory reaches the
// branching factor the cursor backtracks to its parent and moves forward. A
// sibling is never revisited. When the root itself is full the tree is
// exhausted and every subsequent call fails with ErrCodeCapacityExhausted.
func (t *Tree) Allocate(wantDir bool, suffix string) (string, error) {
	for {
		if st, err := os.Stat(t.dir); err != nil {
			return "", wrapIOError(err, t.dir)
		} else if !st.IsDir() {
			return "", newError(ErrCodeInconsistentTree, nil, t.dir)
		}

		if t.count > t.filesPerDir {
			if t.level == 0 {
				return "", newError(ErrCodeCapacityExhausted, nil, t.root)
			}
			// This directory is full: drop its marker, back out to the parent
			// and recount it from a fresh listing.
			if err := os.Remove(filepath.Join(t.dir, MarkerName)); err != nil && !os.IsNotExist(err) {
				return "", wrapIOError(err, t.dir)
			}
			t.dir = filepath.Dir(t.dir)
			t.level--
			entries, err := os.ReadDir(t.dir)
			if err != nil {
				return "", wrapIOError(err, t.dir)
			}
			t.count = len(entries)
			continue
		}

		if t.level == t.levels-1 {
			t.count++
			var p string
			var err error
			if wantDir {
				p, err = t.makeDir(t.dir)
			} else {
				p, err = t.makeFile(t.dir, suffix)
			}
			if err != nil {
				return "", err
			}
			t.created++
			t.log.WithField("path", p).Debug("allocated temporary entry")
			return p, nil
		}

		// Interior directory with room left: branch into a fresh child.
		child, err := t.makeDir(t.dir)
		if err != nil {
			return "", err
		}
		if err := t.writeMarker(child); err != nil {
			return "", err
		}
		t.dir = child
		t.level++
		t.count = 1
	}
}

// Destroy removes a previously allocated entry and lazily prunes any ancestor
// directories the removal left empty, stopping at the first non-empty
// ancestor or at the root. The path must be rooted under the tree and must
// match the claimed kind on disk.
func (t *Tree) Destroy(p string, isDir bool) error {
	cleaned, ok := t.memberPath(p)
	if !ok {
		return newInvalidArgument(p)
	}
	st, err := os.Stat(cleaned)
	if err != nil {
		return wrapIOError(err, cleaned)
	}
	if st.IsDir() != isDir {
		return newInvalidArgument(cleaned)
	}

	if err := os.Remove(cleaned); err != nil {
		if !isDir {
			return wrapIOError(err, cleaned)
		}
		// Leased directories are removed regardless of their contents.
		if err := os.RemoveAll(cleaned); err != nil {
			return wrapIOError(err, cleaned)
		}
	}
	t.destroyed++
	t.log.WithField("path", cleaned).Debug("destroyed temporary entry")

	return t.prune(filepath.Dir(cleaned))
}

// prune removes now-empty ancestors of a destroyed entry. A directory holding
// nothing but its marker counts as empty. The root is never removed. If the
// cursor directory itself is pruned away the cursor falls back to the root
// with a recounted occupancy so the next allocation starts a fresh branch.
func (t *Tree) prune(dir string) error {
	for {
		cleaned, ok := t.memberPath(dir)
		if !ok {
			break
		}
		entries, err := os.ReadDir(cleaned)
		if err != nil {
			return wrapIOError(err, cleaned)
		}
		if len(entries) == 1 && entries[0].Name() == MarkerName {
			if err := os.Remove(filepath.Join(cleaned, MarkerName)); err != nil {
				return wrapIOError(err, cleaned)
			}
		} else if len(entries) > 0 {
			break
		}
		if err := os.Remove(cleaned); err != nil {
			return wrapIOError(err, cleaned)
		}
		dir = filepath.Dir(cleaned)
	}

	if _, err := os.Stat(t.dir); err != nil {
		if !os.IsNotExist(err) {
			return wrapIOError(err, t.dir)
		}
		entries, err := os.ReadDir(t.root)
		if err != nil {
			return wrapIOError(err, t.root)
		}
		t.dir = t.root
		t.level = 0
		t.count = len(entries)
	}
	return nil
}

// ListAll returns the paths of every leaf entry in the tree, walking exactly
// levels deep and skipping markers.
func (t *Tree) ListAll() ([]string, error) {
	out := make([]string, 0)
	if err := t.listInto(t.root, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) listInto(dir string, level int, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newError(ErrCodeInconsistentTree, err, dir)
	}
	for _, e := range entries {
		if e.Name() == MarkerName {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if level == t.levels-1 {
			*out = append(*out, p)
			continue
		}
		if !e.IsDir() {
			return newError(ErrCodeInconsistentTree, nil, p)
		}
		if err := t.listInto(p, level+1, out); err != nil {
			return err
		}
	}
	return nil
}

// DestroyAll unconditionally deletes the entire tree, root included. This is
// intended for end-of-process cleanup and is unsafe while other writers still
// hold paths inside the tree.
func (t *Tree) DestroyAll() error {
	if err := os.RemoveAll(t.root); err != nil {
		return wrapIOError(err, t.root)
	}
	t.log.WithFields(log.Fields{
		"created":   t.created,
		"destroyed": t.destroyed,
	}).Debug("destroyed temporary file tree")
	return nil
}

func (t *Tree) writeMarker(dir string) error {
	f, err := os.OpenFile(filepath.Join(dir, MarkerName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapIOError(err, dir)
	}
	if err := f.Close(); err != nil {
		return wrapIOError(err, dir)
	}
	return nil
}

// makeFile creates an empty, uniquely named file in dir and returns its path.
func (t *Tree) makeFile(dir string, suffix string) (string, error) {
	for {
		p := filepath.Join(dir, namePrefix+system.RandomString(randomNameLength)+suffix)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", wrapIOError(err, p)
		}
		if err := f.Close(); err != nil {
			return "", wrapIOError(err, p)
		}
		return p, nil
	}
}

// makeDir creates a uniquely named directory in dir and returns its path.
func (t *Tree) makeDir(dir string) (string, error) {
	for {
		p := filepath.Join(dir, namePrefix+system.RandomString(randomNameLength))
		if err := os.Mkdir(p, 0o755); err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", wrapIOError(err, p)
		}
		return p, nil
	}
}
