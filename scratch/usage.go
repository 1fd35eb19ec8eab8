package scratch

import (
	"os"

	"github.com/karrick/godirwalk"
)

// Usage computes the total size in bytes of everything currently stored under
// the tree root. The walk is unsorted since ordering does not matter for a
// simple sum.
func (t *Tree) Usage() (int64, error) {
	var size int64
	err := godirwalk.Walk(t.root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(p string, e *godirwalk.Dirent) error {
			// Only count regular files; directory entries carry no payload and
			// symlink targets may live outside the tree.
			if e.IsDir() || e.IsSymlink() {
				return nil
			}
			st, err := os.Lstat(p)
			if err != nil {
				return err
			}
			size += st.Size()
			return nil
		},
	})
	if err != nil {
		return 0, wrapIOError(err, t.root)
	}
	return size, nil
}
