package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DiskSaver writes downloads into a directory. Files appear under their
// final name only once fully written.
type DiskSaver struct {
	dir    string
	logger *slog.Logger
}

// NewDiskSaver creates a saver rooted at dir
func NewDiskSaver(dir string, logger *slog.Logger) *DiskSaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskSaver{dir: dir, logger: logger}
}

// Save streams r to a temp file and renames it into place. An existing file
// with the same name is kept; the new one gets a numeric suffix.
func (s *DiskSaver) Save(filename string, r io.Reader) (string, error) {
	dir, err := expandHome(s.dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".reveil-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to finish download: %w", err)
	}

	dest := uniquePath(dir, sanitizeFilename(filename))
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	s.logger.Debug("saved download", "path", dest)
	return dest, nil
}

// sanitizeFilename strips directories and characters invalid on common filesystems
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "download"
	}
	return name
}

func uniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		path = filepath.Join(dir, stem+" ("+strconv.Itoa(i)+")"+ext)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}
