// Package manifest writes the M3U playlists the playback service reads: one
// file per playlist listing absolute paths of locally present videos in
// server order.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fleetsync/internal/filex"
)

const ext = ".m3u"

type Writer struct {
	Dir string
}

func NewWriter(dir string) (*Writer, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Writer{Dir: abs}, nil
}

// Path is the manifest location for a playlist id.
func (w *Writer) Path(playlistID int64) string {
	return filepath.Join(w.Dir, "playlist_"+strconv.FormatInt(playlistID, 10)+ext)
}

// Render builds manifest bytes for the given absolute media paths.
func Render(paths []string) []byte {
	var b bytes.Buffer
	b.WriteString("#EXTM3U\n")
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Write stores the manifest for playlistID and reports whether the bytes on
// disk changed. An identical rewrite is not a change.
func (w *Writer) Write(playlistID int64, paths []string) (bool, error) {
	changed, err := filex.WriteIfChanged(w.Path(playlistID), Render(paths), 0o644)
	if err != nil {
		return false, fmt.Errorf("write manifest %d: %w", playlistID, err)
	}
	return changed, nil
}

// RemoveExcept deletes every manifest whose playlist id is not in keep. It
// catches manifests left behind by a snapshot that was never persisted.
func (w *Writer) RemoveExcept(keep map[int64]struct{}) (int, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return 0, fmt.Errorf("read manifest dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		id, ok := parseName(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		if _, keepIt := keep[id]; keepIt {
			continue
		}
		ok, err := filex.RemoveIfExists(filepath.Join(w.Dir, e.Name()))
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func parseName(name string) (int64, bool) {
	if !strings.HasPrefix(name, "playlist_") || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "playlist_"), ext), 10, 64)
	return id, err == nil
}
