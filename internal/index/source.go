package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned (wrapped) when an index record does not exist.
var ErrNotFound = errors.New("index record not found")

// Source reads raw index documents by slash-separated relative path,
// e.g. "themes/growth.json". A missing document yields an error wrapping
// ErrNotFound.
type Source interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Record paths inside an index tree.
const (
	EpisodeIndexPath = "episode_index.json"
	ThemeListPath    = "themes/_index.json"
)

// ThemePath returns the document path of a theme.
func ThemePath(themeID string) string { return "themes/" + themeID + ".json" }

// TopicsPath returns the document path of an episode's topics.
func TopicsPath(episodeID string) string { return "topics/" + episodeID + ".json" }

// QuotesPath returns the document path of an episode's quotes.
func QuotesPath(episodeID string) string { return "quotes/" + episodeID + ".json" }

// validKey rejects ids that would address a document outside their level.
func validKey(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// FileSource reads index documents from a directory tree on disk.
type FileSource struct {
	root string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{root: dir}
}

// Root returns the directory the source reads from.
func (s *FileSource) Root() string {
	return s.root
}

// Read implements Source.
func (s *FileSource) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Paths lists every JSON document under the root as slash-separated
// relative paths, sorted.
func (s *FileSource) Paths(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || path.Ext(d.Name()) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk index %s: %w", s.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}
