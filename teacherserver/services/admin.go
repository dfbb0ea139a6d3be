package services

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"campcooking/teacherserver/engine"
	"campcooking/teacherserver/storage"
	"campcooking/teacherserver/utils"
)

const adminSecretHeader = "X-Admin-Secret"

type AdminService struct {
	engine *engine.Engine
	store  *storage.DiskStorage

	secret  string
	started time.Time
}

func (s *AdminService) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStatistics()
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error computing statistics: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, stats)
}

type statusResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds int64              `json:"uptimeSeconds"`
	TotalTeams    int64              `json:"totalTeams"`
	Disk          storage.UsageStats `json:"disk"`
}

func (s *AdminService) Status(w http.ResponseWriter, r *http.Request) {
	teams, err := s.engine.TeamCount()
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error getting team count: %v", err), GetResponseCode(err))
		return
	}

	disk, err := s.store.Usage()
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting disk usage: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, statusResponse{
		Status:        "running",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		TotalTeams:    teams,
		Disk:          disk,
	})
}

func (s *AdminService) Export(w http.ResponseWriter, r *http.Request) {
	teams, err := s.engine.ListTeams()
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error listing teams for export: %v", err), GetResponseCode(err))
		return
	}

	roster := make([]storage.RosterRow, 0, len(teams))
	for _, team := range teams {
		roster = append(roster, storage.RosterRow{
			TeamName:        team.TeamName,
			School:          team.School,
			Grade:           team.Grade,
			ClassName:       team.ClassName,
			StoveNumber:     team.StoveNumber,
			CurrentStage:    team.CurrentStage,
			CompletedStages: team.CompletedStages,
			TotalStages:     team.TotalStages,
			HasSummary:      team.HasSummary,
			LastUpdated:     team.SubmitTime,
		})
	}

	filename := fmt.Sprintf("export_%v.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := s.store.WriteExport(w, roster); err != nil {
		// Headers are already sent, all we can do is log.
		slog.Error("error writing export archive", "error", err)
		return
	}

	slog.Info("export archive written", "teams", len(teams))
}

func (s *AdminService) checkSecret(r *http.Request) error {
	if s.secret == "" {
		return CodedError(fmt.Errorf("admin endpoints are disabled"), http.StatusForbidden)
	}
	provided := r.Header.Get(adminSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) != 1 {
		return CodedError(fmt.Errorf("invalid admin secret"), http.StatusForbidden)
	}
	return nil
}

type clearResponse struct {
	Status  string           `json:"status"`
	Deleted map[string]int64 `json:"deleted"`
}

func (s *AdminService) Clear(w http.ResponseWriter, r *http.Request) {
	if err := s.checkSecret(r); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	deleted, err := s.engine.ClearAll()
	if err != nil {
		err = asCoded(err)
		slog.Error("error clearing database", "error", err)
		http.Error(w, fmt.Sprintf("error clearing database: %v", err), GetResponseCode(err))
		return
	}

	if err := s.store.ClearAll(); err != nil {
		http.Error(w, fmt.Sprintf("error clearing storage: %v", err), http.StatusInternalServerError)
		return
	}

	slog.Info("all submission data cleared", "deleted", deleted)
	utils.WriteJsonResponse(w, clearResponse{Status: "success", Deleted: deleted})
}
