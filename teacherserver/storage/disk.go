// Package storage handles everything the server keeps on disk outside the
// database: per team submission snapshots, uploaded media files, and the
// export archive handed to teachers at the end of an activity.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	snapshotDir = "snapshots"
	mediaDir    = "media"

	snapshotTimeFormat = "20060102_150405"
	latestSnapshot     = "latest.json"
)

var ErrBadFilename = errors.New("invalid filename")

type DiskStorage struct {
	basepath string
}

func NewDisk(basepath string) *DiskStorage {
	slog.Info("creating new disk storage", "basepath", basepath)
	return &DiskStorage{basepath: basepath}
}

func (s *DiskStorage) Location() string {
	return s.basepath
}

// sanitizeName rejects anything that could escape the storage root when
// joined into a path. Client filenames are untrusted input.
func sanitizeName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	return nil
}

func (s *DiskStorage) writeData(fullpath string, data io.Reader) (int64, error) {
	err := os.MkdirAll(filepath.Dir(fullpath), 0777)
	if err != nil {
		slog.Error("error creating parent directory", "path", fullpath, "error", err)
		return 0, fmt.Errorf("error creating parent directory %v: %v", fullpath, err)
	}

	file, err := os.OpenFile(fullpath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		slog.Error("error opening file for writing", "path", fullpath, "error", err)
		return 0, fmt.Errorf("error opening file %v: %v", fullpath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		slog.Error("error writing to file", "path", fullpath, "error", err)
		return 0, fmt.Errorf("error writing to file %v: %v", fullpath, err)
	}

	return n, nil
}

// WriteSnapshot stores the raw submission document for a team twice: once
// under a timestamped name to keep an audit trail, and once as latest.json
// so the most recent state is addressable without listing the directory.
func (s *DiskStorage) WriteSnapshot(teamId string, document []byte, at time.Time) error {
	if err := sanitizeName(teamId); err != nil {
		return err
	}

	name := fmt.Sprintf("data_%v.json", at.Format(snapshotTimeFormat))
	dir := filepath.Join(s.basepath, snapshotDir, teamId)

	if _, err := s.writeData(filepath.Join(dir, name), strings.NewReader(string(document))); err != nil {
		return err
	}
	if _, err := s.writeData(filepath.Join(dir, latestSnapshot), strings.NewReader(string(document))); err != nil {
		return err
	}

	return nil
}

// ReadLatestSnapshot returns the most recent snapshot for a team, or
// os.ErrNotExist if the team has never submitted.
func (s *DiskStorage) ReadLatestSnapshot(teamId string) ([]byte, error) {
	if err := sanitizeName(teamId); err != nil {
		return nil, err
	}

	fullpath := filepath.Join(s.basepath, snapshotDir, teamId, latestSnapshot)
	data, err := os.ReadFile(fullpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Error("error reading snapshot", "path", fullpath, "error", err)
		return nil, fmt.Errorf("error reading snapshot for team %v: %v", teamId, err)
	}
	return data, nil
}

// ListSnapshots returns the timestamped snapshot filenames for a team in
// directory order. The latest.json pointer is excluded.
func (s *DiskStorage) ListSnapshots(teamId string) ([]string, error) {
	if err := sanitizeName(teamId); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.basepath, snapshotDir, teamId)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		slog.Error("error listing snapshots", "path", dir, "error", err)
		return nil, fmt.Errorf("error listing snapshots for team %v: %w", teamId, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == latestSnapshot {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// SaveMedia stores an uploaded file under the team's media directory and
// returns the relative path recorded in the database along with the number
// of bytes written.
func (s *DiskStorage) SaveMedia(teamId, filename string, data io.Reader) (string, int64, error) {
	if err := sanitizeName(teamId); err != nil {
		return "", 0, err
	}
	if err := sanitizeName(filename); err != nil {
		return "", 0, err
	}

	relpath := filepath.Join(mediaDir, teamId, filename)
	n, err := s.writeData(filepath.Join(s.basepath, relpath), data)
	if err != nil {
		return "", 0, err
	}
	return relpath, n, nil
}

// OpenMedia opens a previously stored media file for streaming back to a
// client. The caller owns the returned handle.
func (s *DiskStorage) OpenMedia(teamId, filename string) (io.ReadCloser, error) {
	if err := sanitizeName(teamId); err != nil {
		return nil, err
	}
	if err := sanitizeName(filename); err != nil {
		return nil, err
	}

	fullpath := filepath.Join(s.basepath, mediaDir, teamId, filename)
	file, err := os.Open(fullpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Error("error opening media file", "path", fullpath, "error", err)
		return nil, fmt.Errorf("error opening media file %v: %v", filename, err)
	}
	return file, nil
}

// ClearAll removes every snapshot and media file. Used by the reset
// endpoint between activity sessions.
func (s *DiskStorage) ClearAll() error {
	for _, dir := range []string{snapshotDir, mediaDir} {
		fullpath := filepath.Join(s.basepath, dir)
		if err := os.RemoveAll(fullpath); err != nil {
			slog.Error("error clearing storage directory", "path", fullpath, "error", err)
			return fmt.Errorf("error clearing storage directory %v: %v", dir, err)
		}
	}
	return nil
}

type UsageStats struct {
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`
}

func (s *DiskStorage) Usage() (UsageStats, error) {
	var stat unix.Statfs_t

	err := unix.Statfs(s.basepath, &stat)
	if err != nil {
		slog.Error("error getting disk usage for storage", "path", s.basepath, "error", err)
		return UsageStats{}, fmt.Errorf("error getting disk usage stats: %w", err)
	}

	return UsageStats{
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bfree * uint64(stat.Bsize),
	}, nil
}
