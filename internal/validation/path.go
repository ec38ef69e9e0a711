package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/mammoth/pkg/diagnostics"
)

// PathKind selects what a Path validator expects to find.
type PathKind int

const (
	// ExistingDirectory requires an existing directory.
	ExistingDirectory PathKind = iota
	// ExistingFile requires an existing regular file.
	ExistingFile
	// FilePath only requires that the path does not look like a directory.
	FilePath
)

func (k PathKind) String() string {
	switch k {
	case ExistingDirectory:
		return "existing directory"
	case ExistingFile:
		return "existing file"
	case FilePath:
		return "file path"
	}
	return fmt.Sprintf("PathKind(%d)", int(k))
}

// Path validates a filesystem path.
type Path struct {
	Severity diagnostics.Severity
	Kind     PathKind
}

// Validate implements Validator.
func (p Path) Validate(logger diagnostics.Logger, path string) error {
	switch p.Kind {
	case ExistingDirectory:
		info, err := os.Stat(path)
		if err != nil {
			return p.statFailure(logger, path, "Directory", err)
		}
		if !info.IsDir() {
			return Report(logger, p.Severity, diagnostics.ErrInvalidDirectory, path,
				fmt.Sprintf("%q is not a directory.", path))
		}
	case ExistingFile:
		info, err := os.Stat(path)
		if err != nil {
			return p.statFailure(logger, path, "File", err)
		}
		if !info.Mode().IsRegular() {
			return Report(logger, p.Severity, diagnostics.ErrFileNotFound, path,
				fmt.Sprintf("%q is not a file.", path))
		}
	case FilePath:
		if hasTrailingSeparator(path) {
			return Report(logger, p.Severity, diagnostics.ErrInvalidFilePath, path,
				fmt.Sprintf("%q is a directory path, expected a file path.", path))
		}
	default:
		return fmt.Errorf("unsupported path kind %v", p.Kind)
	}
	return nil
}

func (p Path) statFailure(logger diagnostics.Logger, path, what string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return Report(logger, p.Severity, diagnostics.ErrFileNotFound, path,
			fmt.Sprintf("%s %q does not exist.", what, path))
	}
	diagnostics.Logf(logger, p.Severity, "Cannot access %q: %v", path, err)
	if !p.Severity.Fatal() {
		return nil
	}
	return diagnostics.NewError(diagnostics.ErrIO, path, err)
}

func hasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator))
}
