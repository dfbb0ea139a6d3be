package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"campcooking/teacherserver/engine"
	"campcooking/teacherserver/storage"
	"campcooking/teacherserver/utils"
	"campcooking/teacherserver/wire"
)

// Submissions can carry inline media descriptors but never file contents,
// so anything past this size is malformed or hostile.
const maxSubmissionBytes = 10 << 20

type SubmissionService struct {
	engine *engine.Engine
	store  *storage.DiskStorage
}

type submitResponse struct {
	Status string `json:"status"`
	TeamId string `json:"teamId"`
}

func (s *SubmissionService) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("error reading request body: %v", err), http.StatusBadRequest)
		return
	}

	var doc wire.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		slog.Error("error parsing submission body", "error", err)
		http.Error(w, fmt.Sprintf("error parsing request body: %v", err), http.StatusBadRequest)
		return
	}

	teamId, err := s.engine.Submit(&doc)
	if err != nil {
		err = asCoded(err)
		slog.Error("error saving submission", "error", err)
		http.Error(w, fmt.Sprintf("error saving submission: %v", err), GetResponseCode(err))
		return
	}

	// The relational write already succeeded, so a failed snapshot is logged
	// rather than surfaced as a submission failure.
	if err := s.store.WriteSnapshot(teamId, body, time.Now()); err != nil {
		slog.Warn("error writing submission snapshot", "team_id", teamId, "error", err)
	}

	slog.Info("submission saved", "team_id", teamId)
	utils.WriteJsonResponse(w, submitResponse{Status: "success", TeamId: teamId})
}

type listTeamsResponse struct {
	Teams []engine.TeamSummary `json:"teams"`
	Total int                  `json:"total"`
}

func (s *SubmissionService) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.engine.ListTeams()
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error listing teams: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, listTeamsResponse{Teams: teams, Total: len(teams)})
}

func (s *SubmissionService) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParam(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := s.engine.GetTeamDocument(teamId)
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error getting team %v: %v", teamId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, doc)
}
