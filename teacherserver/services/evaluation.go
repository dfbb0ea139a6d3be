package services

import (
	"fmt"
	"log/slog"
	"net/http"

	"campcooking/teacherserver/engine"
	"campcooking/teacherserver/utils"
	"campcooking/teacherserver/wire"
)

type EvaluationService struct {
	engine *engine.Engine
}

type evaluationResponse struct {
	TeamId      string                          `json:"teamId"`
	Evaluations map[string]wire.StageEvaluation `json:"evaluations"`
}

func (s *EvaluationService) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParam(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	evaluations, err := s.engine.GetEvaluation(teamId)
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error getting evaluation for team %v: %v", teamId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, evaluationResponse{TeamId: teamId, Evaluations: evaluations})
}

type saveEvaluationRequest struct {
	TeamName    string                          `json:"teamName"`
	Evaluations map[string]wire.StageEvaluation `json:"evaluations"`
}

func (s *EvaluationService) SaveEvaluation(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParam(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params saveEvaluationRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := s.engine.SaveEvaluation(teamId, params.TeamName, params.Evaluations); err != nil {
		err = asCoded(err)
		slog.Error("error saving evaluation", "team_id", teamId, "error", err)
		http.Error(w, fmt.Sprintf("error saving evaluation for team %v: %v", teamId, err), GetResponseCode(err))
		return
	}

	slog.Info("evaluation saved", "team_id", teamId)
	utils.WriteSuccess(w)
}

type evaluableTeamsResponse struct {
	Teams      []engine.EvaluableTeam `json:"teams"`
	Pagination engine.Pagination      `json:"pagination"`
}

func (s *EvaluationService) ListEvaluableTeams(w http.ResponseWriter, r *http.Request) {
	page, err := utils.QueryParamInt(r, "page", 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pageSize, err := utils.QueryParamInt(r, "page_size", 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	teams, pagination, err := s.engine.ListEvaluableTeams(page, pageSize)
	if err != nil {
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error listing evaluable teams: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, evaluableTeamsResponse{Teams: teams, Pagination: pagination})
}
