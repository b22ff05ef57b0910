// Package media keeps downloaded videos on local disk. A file becomes visible
// under its final name only after it was fully written and synced, so a
// crash mid-download can never leave a truncated file that looks complete.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/filex"
	"github.com/google/uuid"
)

const (
	partSuffix = ".part"
	defaultExt = ".mp4"
)

type Store struct {
	Dir     string
	Source  Source
	Timeout time.Duration
}

// NewStore prepares dir and returns a store writing into it.
func NewStore(dir string, src Source, timeout time.Duration) (*Store, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Store{Dir: abs, Source: src, Timeout: timeout}, nil
}

// Path is the absolute location of v. A non-empty file already stored for
// the video id wins whatever its extension, so a content ref that changes
// between cycles (presigned URL, catalog fallback) does not cause a
// re-download. Otherwise the name is <video_id><ext> with ext taken from
// the ref.
func (s *Store) Path(v contentapi.Video) string {
	if p := s.existing(v.VideoID); p != "" {
		return p
	}
	return filepath.Join(s.Dir, strconv.FormatInt(v.VideoID, 10)+extOf(v.ContentRef))
}

// Has reports whether a non-empty file is stored for v's video id.
func (s *Store) Has(v contentapi.Video) bool {
	return s.existing(v.VideoID) != ""
}

// existing returns the first non-empty <id>.<ext> file in Dir, or "".
func (s *Store) existing(videoID int64) string {
	id := strconv.FormatInt(videoID, 10)
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, partSuffix) || strings.TrimSuffix(name, filepath.Ext(name)) != id {
			continue
		}
		if p := filepath.Join(s.Dir, name); filex.NonEmptyFile(p) {
			return p
		}
	}
	return ""
}

// Ensure downloads v unless it is already present. It reports whether bytes
// were fetched. On any failure the final path is left untouched.
func (s *Store) Ensure(ctx context.Context, v contentapi.Video) (bool, error) {
	if s.Has(v) {
		return false, nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	body, announced, err := s.Source.Open(ctx, v)
	if err != nil {
		return false, fmt.Errorf("open video %d: %w", v.VideoID, err)
	}
	defer body.Close()

	final := s.Path(v)
	tmp := filepath.Join(s.Dir, fmt.Sprintf("%d.%s%s", v.VideoID, uuid.NewString(), partSuffix))

	if err := writePart(tmp, body, expectedSize(v.Size, announced)); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("download video %d: %w", v.VideoID, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("publish video %d: %w", v.VideoID, err)
	}
	return true, nil
}

// expectedSize prefers the catalog-declared size; a non-positive result
// disables the check.
func expectedSize(declared, announced int64) int64 {
	if declared > 0 {
		return declared
	}
	return announced
}

func writePart(tmp string, body io.Reader, want int64) error {
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, body)
	if err != nil {
		_ = f.Close()
		return err
	}
	if n == 0 || (want > 0 && n != want) {
		_ = f.Close()
		return fmt.Errorf("%w: got %d bytes, want %d", common.ErrTruncated, n, want)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// CleanPartials removes leftover *.part files from interrupted downloads.
func (s *Store) CleanPartials() (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("read media dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), partSuffix) {
			continue
		}
		ok, err := filex.RemoveIfExists(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Prune deletes media files whose name is not in keep. Only files named
// <video_id><ext> are considered; anything else in the directory is left
// alone.
func (s *Store) Prune(keep map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("read media dir: %w", err)
	}

	var errs []error
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, partSuffix) || !isMediaName(name) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		ok, err := filex.RemoveIfExists(filepath.Join(s.Dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func isMediaName(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	_, err := strconv.ParseInt(stem, 10, 64)
	return err == nil
}

// extOf derives the file extension from a content ref, ignoring any query
// string. Refs without a plausible extension get defaultExt.
func extOf(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if len(ext) < 2 || len(ext) > 6 {
		return defaultExt
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExt
		}
	}
	return ext
}
