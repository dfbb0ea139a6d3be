package storage

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// RosterRow is one team's line in the export spreadsheet.
type RosterRow struct {
	TeamName        string
	School          string
	Grade           string
	ClassName       string
	StoveNumber     string
	CurrentStage    string
	CompletedStages int
	TotalStages     int
	HasSummary      bool
	LastUpdated     int64
}

var rosterHeaders = []string{
	"Team", "School", "Grade", "Class", "Stove", "Current Stage",
	"Completed Stages", "Total Stages", "Summary Submitted", "Last Updated",
}

const rosterSheet = "Teams"

func buildRoster(rows []RosterRow) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})

	for colIdx, header := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		f.SetCellValue(rosterSheet, cell, header)
		f.SetCellStyle(rosterSheet, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		summary := "no"
		if row.HasSummary {
			summary = "yes"
		}
		updated := ""
		if row.LastUpdated > 0 {
			updated = time.UnixMilli(row.LastUpdated).Format("2006-01-02 15:04:05")
		}

		values := []interface{}{
			row.TeamName, row.School, row.Grade, row.ClassName, row.StoveNumber,
			row.CurrentStage, row.CompletedStages, row.TotalStages, summary, updated,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(rosterSheet, cell, value)
		}
	}

	return f, nil
}

// WriteExport streams a zip archive containing the roster spreadsheet plus
// every snapshot and media file currently on disk.
func (s *DiskStorage) WriteExport(w io.Writer, roster []RosterRow) error {
	archive := zip.NewWriter(w)

	xlsx, err := buildRoster(roster)
	if err != nil {
		slog.Error("error building roster spreadsheet", "error", err)
		return fmt.Errorf("error building roster spreadsheet: %w", err)
	}

	entry, err := archive.Create("teams.xlsx")
	if err != nil {
		return fmt.Errorf("error creating roster entry in archive: %w", err)
	}
	if err := xlsx.Write(entry); err != nil {
		slog.Error("error writing roster spreadsheet to archive", "error", err)
		return fmt.Errorf("error writing roster spreadsheet to archive: %w", err)
	}

	for _, dir := range []string{snapshotDir, mediaDir} {
		if err := s.archiveDir(archive, dir); err != nil {
			return err
		}
	}

	if err := archive.Close(); err != nil {
		slog.Error("error finalizing export archive", "error", err)
		return fmt.Errorf("error finalizing export archive: %w", err)
	}
	return nil
}

func (s *DiskStorage) archiveDir(archive *zip.Writer, dir string) error {
	fullpath := filepath.Join(s.basepath, dir)
	if _, err := os.Stat(fullpath); os.IsNotExist(err) {
		return nil
	}

	err := filepath.WalkDir(fullpath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		relpath, err := filepath.Rel(s.basepath, path)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		dest, err := archive.Create(filepath.ToSlash(relpath))
		if err != nil {
			return err
		}
		_, err = io.Copy(dest, file)
		return err
	})
	if err != nil {
		slog.Error("error writing directory to export archive", "dir", dir, "error", err)
		return fmt.Errorf("error writing directory %v to export archive: %w", dir, err)
	}
	return nil
}
