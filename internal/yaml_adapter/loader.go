package yaml_adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/ctxlog"
	"github.com/vk/mammoth/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .yaml or .yml file found under paths and merges them
// into one config.File.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.File, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findYAMLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	result := &config.File{}
	for _, file := range files {
		doc, err := decodeFile(file)
		if err != nil {
			return nil, err
		}
		translated, err := translate(doc)
		if err != nil {
			return nil, fmt.Errorf("in YAML file %s: %w", file, err)
		}
		result.Merge(translated)
	}
	return result, nil
}

func decodeFile(path string) (*document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open YAML file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return &doc, nil
}

var extensions = []string{".yaml", ".yml"}

func findYAMLFiles(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if fsutil.HasExtension(path, extensions...) {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, extensions...)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}
