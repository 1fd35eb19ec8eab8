package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/franela/goblin"
)

// newTestTree builds a fresh tree beneath a throwaway temp directory. The
// returned base should be removed by the caller once the test is done.
func newTestTree(filesPerDir int, levels int) (*Tree, string) {
	base, err := os.MkdirTemp(os.TempDir(), "sonlib")
	if err != nil {
		panic(err)
	}
	t, err := New(filepath.Join(base, "scratch"), filesPerDir, levels)
	if err != nil {
		panic(err)
	}
	return t, base
}

// countEntries walks every directory under root and returns the largest
// number of non-marker entries found in any single one.
func maxFanOut(root string) int {
	max := 0
	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return err
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		n := 0
		for _, e := range entries {
			if e.Name() != MarkerName {
				n++
			}
		}
		if n > max {
			max = n
		}
		return nil
	})
	return max
}

func TestTreeNew(t *testing.T) {
	g := Goblin(t)

	g.Describe("New", func() {
		g.It("rejects a branching factor below one", func() {
			_, err := New("/tmp/unused", 0, 3)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInvalidArgument)).IsTrue()
		})

		g.It("rejects a depth below one", func() {
			_, err := New("/tmp/unused", 500, 0)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInvalidArgument)).IsTrue()
		})

		g.It("creates the root directory and its marker", func() {
			tree, base := newTestTree(2, 2)
			defer os.RemoveAll(base)

			st, err := os.Stat(tree.Path())
			g.Assert(err).IsNil()
			g.Assert(st.IsDir()).IsTrue()

			_, err = os.Stat(filepath.Join(tree.Path(), MarkerName))
			g.Assert(err).IsNil()
		})

		g.It("reopens an existing root and keeps allocating", func() {
			tree, base := newTestTree(3, 1)
			defer os.RemoveAll(base)

			first, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()

			reopened, err := New(tree.Path(), 3, 1)
			g.Assert(err).IsNil()
			second, err := reopened.Allocate(false, "")
			g.Assert(err).IsNil()
			g.Assert(second != first).IsTrue()

			entries, err := reopened.ListAll()
			g.Assert(err).IsNil()
			g.Assert(len(entries)).Equal(2)
		})
	})
}

func TestTreeAllocate(t *testing.T) {
	g := Goblin(t)

	g.Describe("Tree#Allocate", func() {
		g.It("returns unique names with the expected shape", func() {
			tree, base := newTestTree(4, 2)
			defer os.RemoveAll(base)

			seen := make(map[string]struct{})
			for i := 0; i < 10; i++ {
				p, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
				g.Assert(strings.HasPrefix(p, tree.Path()+string(filepath.Separator))).IsTrue()
				g.Assert(strings.HasPrefix(filepath.Base(p), "tmp_")).IsTrue()
				g.Assert(len(filepath.Base(p))).Equal(len("tmp_") + 10)

				_, ok := seen[p]
				g.Assert(ok).IsFalse()
				seen[p] = struct{}{}

				st, err := os.Stat(p)
				g.Assert(err).IsNil()
				g.Assert(st.IsDir()).IsFalse()
			}
		})

		g.It("appends the requested suffix to file names", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(false, ".fa")
			g.Assert(err).IsNil()
			g.Assert(strings.HasSuffix(p, ".fa")).IsTrue()
		})

		g.It("allocates directories without a suffix", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(true, ".fa")
			g.Assert(err).IsNil()
			g.Assert(strings.HasSuffix(p, ".fa")).IsFalse()

			st, err := os.Stat(p)
			g.Assert(err).IsNil()
			g.Assert(st.IsDir()).IsTrue()
		})

		g.It("exhausts a single level tree after exactly its branching factor", func() {
			tree, base := newTestTree(3, 1)
			defer os.RemoveAll(base)

			for i := 0; i < 3; i++ {
				_, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
			}
			_, err := tree.Allocate(false, "")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeCapacityExhausted)).IsTrue()
		})

		g.It("exhausts a deep tree after exactly its capacity", func() {
			tree, base := newTestTree(2, 3)
			defer os.RemoveAll(base)
			g.Assert(tree.Capacity()).Equal(8)

			for i := 0; i < 8; i++ {
				_, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
			}
			_, err := tree.Allocate(false, "")
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeCapacityExhausted)).IsTrue()

			entries, err := tree.ListAll()
			g.Assert(err).IsNil()
			g.Assert(len(entries)).Equal(8)
		})

		g.It("keeps failing once the tree is exhausted", func() {
			tree, base := newTestTree(2, 1)
			defer os.RemoveAll(base)

			tree.Allocate(false, "")
			tree.Allocate(false, "")
			for i := 0; i < 3; i++ {
				_, err := tree.Allocate(false, "")
				g.Assert(IsErrorCode(err, ErrCodeCapacityExhausted)).IsTrue()
			}
		})

		g.It("never lets a directory exceed the branching factor", func() {
			tree, base := newTestTree(2, 3)
			defer os.RemoveAll(base)

			for i := 0; i < 8; i++ {
				_, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
			}
			g.Assert(maxFanOut(tree.Path()) <= 2).IsTrue()
		})

		g.It("reports progress through the lifetime counters", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()
			g.Assert(tree.Destroy(p, false)).IsNil()

			created, destroyed := tree.Stats()
			g.Assert(created).Equal(uint64(1))
			g.Assert(destroyed).Equal(uint64(1))
		})
	})
}

func TestTreeDestroy(t *testing.T) {
	g := Goblin(t)

	g.Describe("Tree#Destroy", func() {
		g.It("removes the entry and prunes the branch it lived in", func() {
			tree, base := newTestTree(2, 3)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()
			g.Assert(tree.Destroy(p, false)).IsNil()

			entries, err := tree.ListAll()
			g.Assert(err).IsNil()
			g.Assert(len(entries)).Equal(0)

			// The branch directories created solely for the entry are gone,
			// but the root itself persists with its marker.
			children, err := os.ReadDir(tree.Path())
			g.Assert(err).IsNil()
			g.Assert(len(children)).Equal(1)
			g.Assert(children[0].Name()).Equal(MarkerName)
		})

		g.It("leaves siblings alone when pruning", func() {
			tree, base := newTestTree(2, 2)
			defer os.RemoveAll(base)

			p1, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()
			p2, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()

			g.Assert(tree.Destroy(p1, false)).IsNil()

			_, err = os.Stat(p2)
			g.Assert(err).IsNil()
			entries, err := tree.ListAll()
			g.Assert(err).IsNil()
			g.Assert(entries).Equal([]string{p2})
		})

		g.It("keeps allocating after its current branch was pruned", func() {
			tree, base := newTestTree(2, 3)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()
			g.Assert(tree.Destroy(p, false)).IsNil()

			// The cursor pointed into the pruned branch; allocation must
			// recover and hand out a fresh entry.
			next, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()
			_, err = os.Stat(next)
			g.Assert(err).IsNil()
		})

		g.It("removes an allocated directory together with its contents", func() {
			tree, base := newTestTree(4, 2)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(true, "")
			g.Assert(err).IsNil()
			g.Assert(os.WriteFile(filepath.Join(p, "work.txt"), []byte("x"), 0o644)).IsNil()

			g.Assert(tree.Destroy(p, true)).IsNil()
			_, err = os.Stat(p)
			g.Assert(os.IsNotExist(err)).IsTrue()
		})

		g.It("rejects a path outside the tree without touching it", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			outside := filepath.Join(base, "precious.txt")
			g.Assert(os.WriteFile(outside, []byte("keep"), 0o644)).IsNil()

			err := tree.Destroy(outside, false)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInvalidArgument)).IsTrue()

			b, err := os.ReadFile(outside)
			g.Assert(err).IsNil()
			g.Assert(string(b)).Equal("keep")
		})

		g.It("rejects a traversal that escapes the root", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			err := tree.Destroy(filepath.Join(tree.Path(), "..", "escape"), false)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInvalidArgument)).IsTrue()
		})

		g.It("rejects a kind mismatch", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			p, err := tree.Allocate(false, "")
			g.Assert(err).IsNil()

			err = tree.Destroy(p, true)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInvalidArgument)).IsTrue()

			// The mismatch must not remove the entry.
			_, err = os.Stat(p)
			g.Assert(err).IsNil()
		})

		g.It("reports a missing entry as an IO failure", func() {
			tree, base := newTestTree(4, 1)
			defer os.RemoveAll(base)

			err := tree.Destroy(filepath.Join(tree.Path(), "tmp_0123456789"), false)
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeIOError)).IsTrue()
		})
	})
}

func TestTreeListAll(t *testing.T) {
	g := Goblin(t)

	g.Describe("Tree#ListAll", func() {
		g.It("returns every live entry and nothing else", func() {
			tree, base := newTestTree(3, 2)
			defer os.RemoveAll(base)

			want := make(map[string]struct{})
			for i := 0; i < 5; i++ {
				p, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
				want[p] = struct{}{}
			}

			entries, err := tree.ListAll()
			g.Assert(err).IsNil()
			g.Assert(len(entries)).Equal(5)
			for _, e := range entries {
				_, ok := want[e]
				g.Assert(ok).IsTrue()
			}
		})

		g.It("returns an empty slice for a fresh tree", func() {
			tree, base := newTestTree(3, 2)
			defer os.RemoveAll(base)

			entries, err := tree.ListAll()
			g.Assert(err).IsNil()
			g.Assert(len(entries)).Equal(0)
		})

		g.It("flags a file at an interior level as inconsistent", func() {
			tree, base := newTestTree(3, 2)
			defer os.RemoveAll(base)

			g.Assert(os.WriteFile(filepath.Join(tree.Path(), "stray"), nil, 0o644)).IsNil()

			_, err := tree.ListAll()
			g.Assert(err).IsNotNil()
			g.Assert(IsErrorCode(err, ErrCodeInconsistentTree)).IsTrue()
		})
	})
}

func TestTreeDestroyAll(t *testing.T) {
	g := Goblin(t)

	g.Describe("Tree#DestroyAll", func() {
		g.It("removes the root and everything beneath it", func() {
			tree, base := newTestTree(2, 2)
			defer os.RemoveAll(base)

			for i := 0; i < 3; i++ {
				_, err := tree.Allocate(false, "")
				g.Assert(err).IsNil()
			}

			g.Assert(tree.DestroyAll()).IsNil()
			_, err := os.Stat(tree.Path())
			g.Assert(os.IsNotExist(err)).IsTrue()
		})
	})
}

func TestTreeCapacity(t *testing.T) {
	g := Goblin(t)

	g.Describe("Tree#Capacity", func() {
		g.It("is the branching factor raised to the depth", func() {
			tree, base := newTestTree(5, 3)
			defer os.RemoveAll(base)
			g.Assert(tree.Capacity()).Equal(125)
		})
	})
}
