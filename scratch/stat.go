package scratch

import (
	"os"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
)

type Stat struct {
	Info     os.FileInfo
	Mimetype string
}

func (s *Stat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name      string `json:"name"`
		Modified  string `json:"modified"`
		Mode      string `json:"mode"`
		ModeBits  string `json:"mode_bits"`
		Size      int64  `json:"size"`
		Directory bool   `json:"directory"`
		File      bool   `json:"file"`
		Mime      string `json:"mime"`
	}{
		Name:      s.Info.Name(),
		Modified:  s.Info.ModTime().Format(time.RFC3339),
		Mode:      s.Info.Mode().String(),
		ModeBits:  strconv.FormatUint(uint64(s.Info.Mode()&os.ModePerm), 8),
		Size:      s.Info.Size(),
		Directory: s.Info.IsDir(),
		File:      !s.Info.IsDir(),
		Mime:      s.Mimetype,
	})
}

// Stat returns stat information along with the detected MIME type for an
// entry inside the tree.
func (t *Tree) Stat(p string) (*Stat, error) {
	cleaned, ok := t.memberPath(p)
	if !ok {
		return nil, newInvalidArgument(p)
	}
	s, err := os.Stat(cleaned)
	if err != nil {
		return nil, wrapIOError(err, cleaned)
	}

	st := &Stat{Info: s, Mimetype: "inode/directory"}
	if !s.IsDir() {
		m, err := mimetype.DetectFile(cleaned)
		if err != nil {
			return nil, wrapIOError(err, cleaned)
		}
		st.Mimetype = m.String()
	}
	return st, nil
}
