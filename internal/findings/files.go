// Package findings reads the files the search binary leaves behind: the
// found-key file it appends matches to and the .dat checkpoints it writes
// while searching.
package findings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FoundFile is the name of the file the binary appends matches to.
const FoundFile = "KEYFOUNDKEYFOUND.txt"

// ProgressPattern matches the binary's checkpoint files.
const ProgressPattern = "*.dat"

// Report is the content of the found-key file.
type Report struct {
	Path    string
	Found   bool
	Content string
	ModTime time.Time
}

// Entries returns the non-blank lines of the report.
func (r Report) Entries() []string {
	var out []string
	for _, line := range strings.Split(r.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// CheckFound reads the found-key file in dir. A missing file is reported
// with Found=false and no error.
func CheckFound(dir string) (Report, error) {
	path := filepath.Join(dir, FoundFile)
	report := Report{Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("failed to read %s: %w", path, err)
	}

	report.Found = true
	report.Content = string(data)
	report.ModTime = info.ModTime()
	return report, nil
}

// ProgressFile is one checkpoint file.
type ProgressFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// ProgressFiles lists the checkpoint files in dir, newest first.
func ProgressFiles(dir string) ([]ProgressFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ProgressPattern))
	if err != nil {
		return nil, err
	}

	var out []ProgressFile
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, ProgressFile{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// RemoveProgress deletes one checkpoint file. Only files matching the
// checkpoint pattern are removed.
func RemoveProgress(path string) error {
	ok, err := filepath.Match(ProgressPattern, filepath.Base(path))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not a progress file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove progress file: %w", err)
	}
	return nil
}
