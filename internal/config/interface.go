package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given files or directories and
	// merges everything it finds into a single File.
	Load(ctx context.Context, paths ...string) (*File, error)
}

// ByExtension dispatches paths to loaders keyed by file extension
// (including the dot). Directories are handed to every loader, each of
// which picks up only the files it understands.
type ByExtension map[string]Loader

// Load implements Loader.
func (b ByExtension) Load(ctx context.Context, paths ...string) (*File, error) {
	result := &File{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing config path %s: %w", path, err)
		}

		var loaders []Loader
		if info.IsDir() {
			loaders = b.distinct()
		} else {
			l, ok := b[strings.ToLower(filepath.Ext(path))]
			if !ok {
				return nil, fmt.Errorf("unsupported config file %s: known extensions are %s", path, strings.Join(b.extensions(), ", "))
			}
			loaders = []Loader{l}
		}

		for _, l := range loaders {
			file, err := l.Load(ctx, path)
			if err != nil {
				return nil, err
			}
			result.Merge(file)
		}
	}
	return result, nil
}

func (b ByExtension) extensions() []string {
	exts := make([]string, 0, len(b))
	for ext := range b {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// distinct returns each registered loader once, in extension order, so a
// loader registered for ".yaml" and ".yml" does not scan a directory twice.
func (b ByExtension) distinct() []Loader {
	var out []Loader
	seen := make(map[Loader]struct{})
	for _, ext := range b.extensions() {
		l := b[ext]
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
