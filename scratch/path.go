package scratch

import (
	"path/filepath"
	"strings"
)

// memberPath cleans a caller supplied path and reports whether it falls inside
// the tree root. The check is purely lexical: symlinks are not resolved, since
// every path handed out by Allocate is an absolute path inside the root and
// marker-aware callers are expected to pass those back verbatim.
func (t *Tree) memberPath(p string) (string, bool) {
	cleaned := filepath.Clean(p)
	if !strings.HasPrefix(strings.TrimSuffix(cleaned, "/")+"/", strings.TrimSuffix(t.root, "/")+"/") {
		return cleaned, false
	}
	// The root itself is not a leasable entry.
	if cleaned == filepath.Clean(t.root) {
		return cleaned, false
	}
	return cleaned, true
}
