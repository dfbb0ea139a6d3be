package engine

import (
	"log/slog"
	"sort"

	"campcooking/teacherserver/schema"
)

// TeamSummary is the roster entry returned by ListTeams: display fields plus
// per-stage progress, without the full nested document.
type TeamSummary struct {
	Id          string `json:"id"`
	TeamName    string `json:"teamName"`
	School      string `json:"school"`
	Grade       string `json:"grade"`
	ClassName   string `json:"className"`
	StoveNumber string `json:"stoveNumber"`
	MemberCount int    `json:"memberCount"`
	MemberNames string `json:"memberNames"`
	SubmitTime  int64  `json:"submitTime"`

	HasProcessRecord bool   `json:"hasProcessRecord"`
	HasSummary       bool   `json:"hasSummary"`
	CurrentStage     string `json:"currentStage"`
	CompletedStages  int    `json:"completedStages"`
	TotalStages      int    `json:"totalStages"`

	StageRatings    map[string]int  `json:"stageRatings"`
	StageCompletion map[string]bool `json:"stageCompletion"`
}

// ListTeams returns one summary per team, sorted by station number ascending
// with updated_at as the stable tie-break.
func (e *Engine) ListTeams() ([]TeamSummary, error) {
	var summaries []TeamSummary

	err := withRetry(func() error {
		var teams []schema.Team
		result := e.db.Find(&teams)
		if result.Error != nil {
			slog.Error("sql error listing teams", "error", result.Error)
			return result.Error
		}

		summaries = make([]TeamSummary, 0, len(teams))
		for i := range teams {
			summary, err := e.summarizeTeam(&teams[i])
			if err != nil {
				return err
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByStation(summaries, func(s TeamSummary) (string, int64) { return s.StoveNumber, s.SubmitTime })
	return summaries, nil
}

func (e *Engine) summarizeTeam(team *schema.Team) (TeamSummary, error) {
	summary := TeamSummary{
		Id:              team.TeamId,
		TeamName:        team.DisplayName(),
		School:          team.School,
		Grade:           team.Grade,
		ClassName:       team.ClassName,
		StoveNumber:     team.StoveNumber,
		MemberCount:     team.MemberCount,
		MemberNames:     team.MemberNames,
		SubmitTime:      team.UpdatedAt,
		StageRatings:    map[string]int{},
		StageCompletion: map[string]bool{},
	}

	var rec schema.ProcessRecord
	result := e.db.Limit(1).Find(&rec, "team_id = ?", team.TeamId)
	if result.Error != nil {
		slog.Error("sql error loading process record for summary", "team_id", team.TeamId, "error", result.Error)
		return summary, result.Error
	}

	if result.RowsAffected != 0 {
		summary.HasProcessRecord = true
		summary.CurrentStage = rec.CurrentStage

		stages, err := e.loadStages(rec.Id)
		if err != nil {
			return summary, err
		}
		summary.TotalStages = len(stages)
		for _, stage := range stages {
			summary.StageRatings[stage.StageName] = stage.SelfRating
			summary.StageCompletion[stage.StageName] = stage.IsCompleted
			if stage.IsCompleted {
				summary.CompletedStages++
			}
		}
	}

	var summaryCount int64
	result = e.db.Model(&schema.SummaryData{}).Where("team_id = ?", team.TeamId).Count(&summaryCount)
	if result.Error != nil {
		slog.Error("sql error checking summary data for summary", "team_id", team.TeamId, "error", result.Error)
		return summary, result.Error
	}
	summary.HasSummary = summaryCount > 0

	return summary, nil
}

// EvaluableTeam is the roster entry for the evaluation screens, using the
// denormalized display name when one was recorded at evaluation time.
type EvaluableTeam struct {
	TeamId        string `json:"teamId"`
	TeamName      string `json:"teamName"`
	StoveNumber   string `json:"stoveNumber"`
	HasEvaluation bool   `json:"hasEvaluation"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// ListEvaluableTeams pages through the full roster deterministically: station
// number ascending, updated_at ascending on ties.
func (e *Engine) ListEvaluableTeams(page, pageSize int) ([]EvaluableTeam, Pagination, error) {
	var entries []EvaluableTeam

	err := withRetry(func() error {
		var teams []schema.Team
		result := e.db.Find(&teams)
		if result.Error != nil {
			slog.Error("sql error listing evaluable teams", "error", result.Error)
			return result.Error
		}

		entries = make([]EvaluableTeam, 0, len(teams))
		for i := range teams {
			entry, err := e.evaluableEntry(&teams[i])
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	sortByStation(entries, func(t EvaluableTeam) (string, int64) { return t.StoveNumber, t.UpdatedAt })

	start, end, pagination := paginate(len(entries), page, pageSize)
	return entries[start:end], pagination, nil
}

func (e *Engine) evaluableEntry(team *schema.Team) (EvaluableTeam, error) {
	entry := EvaluableTeam{
		TeamId:      team.TeamId,
		TeamName:    team.DisplayName(),
		StoveNumber: team.StoveNumber,
		UpdatedAt:   team.UpdatedAt,
	}

	var lookup schema.TeacherEvaluationTeam
	result := e.db.Limit(1).Find(&lookup, "team_id = ?", team.TeamId)
	if result.Error != nil {
		slog.Error("sql error loading evaluation team lookup", "team_id", team.TeamId, "error", result.Error)
		return entry, result.Error
	}
	if result.RowsAffected != 0 && lookup.TeamName != "" {
		entry.TeamName = lookup.TeamName
	}

	evaluation, err := e.loadEvaluation(team.TeamId)
	if err != nil {
		return entry, err
	}
	entry.HasEvaluation = len(evaluation.Stages) > 0

	return entry, nil
}

func sortByStation[T any](items []T, key func(T) (string, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		stoveI, updatedI := key(items[i])
		stoveJ, updatedJ := key(items[j])
		rankI, rankJ := StationRank(stoveI), StationRank(stoveJ)
		if rankI != rankJ {
			return rankI < rankJ
		}
		return updatedI < updatedJ
	})
}
