package engine

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"campcooking/teacherserver/schema"
	"campcooking/teacherserver/wire"

	"gorm.io/gorm"
)

// Two storage generations of the teacher evaluation coexist: per-stage rows
// (generation 1) and a single JSON payload per team (generation 2). The union
// below is resolved exactly once here, so callers only ever see the
// generation-2 shape.

const (
	evalGenNone = 0
	evalGenV1   = 1
	evalGenV2   = 2
)

type evaluation struct {
	Generation int
	Stages     map[string]wire.StageEvaluation
}

// SaveEvaluation writes the stage map as a generation-2 row and maintains the
// denormalized display-name lookup beside it. Generation 1 takes no new
// writes.
func (e *Engine) SaveEvaluation(teamId, teamName string, stages map[string]wire.StageEvaluation) error {
	payload, err := json.Marshal(stages)
	if err != nil {
		return wire.Invalid("evaluation stage map cannot be serialized: %v", err)
	}

	now := nowMillis()

	return withRetry(func() error {
		return e.db.Transaction(func(txn *gorm.DB) error {
			team, err := schema.GetTeam(teamId, txn)
			if err != nil {
				return err
			}
			if teamName == "" {
				teamName = team.DisplayName()
			}

			eval := schema.TeacherEvaluationV2{
				TeamId:      teamId,
				Evaluations: string(payload),
				Timestamp:   now,
			}
			if _, err := upsertEvaluationV2(txn, eval, now); err != nil {
				return err
			}

			return upsertEvaluationTeam(txn, schema.TeacherEvaluationTeam{
				TeamId:    teamId,
				TeamName:  teamName,
				UpdatedAt: now,
			})
		})
	})
}

// GetEvaluation returns the stage map for a team. Generation 2 wins whenever
// it exists; otherwise legacy generation-1 rows are translated into the same
// shape. An empty map is the normal "no evaluation yet" state, not an error.
func (e *Engine) GetEvaluation(teamId string) (map[string]wire.StageEvaluation, error) {
	var eval evaluation
	err := withRetry(func() error {
		var err error
		eval, err = e.loadEvaluation(teamId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return eval.Stages, nil
}

func (e *Engine) loadEvaluation(teamId string) (evaluation, error) {
	var v2 schema.TeacherEvaluationV2
	result := e.db.Limit(1).Find(&v2, "team_id = ?", teamId)
	if result.Error != nil {
		slog.Error("sql error loading evaluation", "team_id", teamId, "error", result.Error)
		return evaluation{}, result.Error
	}

	if result.RowsAffected != 0 {
		stages := map[string]wire.StageEvaluation{}
		if err := json.Unmarshal([]byte(v2.Evaluations), &stages); err != nil {
			// A corrupt payload degrades to "no evaluation" rather than
			// failing every read of this team.
			slog.Error("unreadable generation-2 evaluation payload", "team_id", teamId, "error", err)
			stages = map[string]wire.StageEvaluation{}
		}
		return evaluation{Generation: evalGenV2, Stages: stages}, nil
	}

	var legacy []schema.TeacherEvaluation
	result = e.db.Where("team_id = ?", teamId).Find(&legacy)
	if result.Error != nil {
		slog.Error("sql error loading legacy evaluations", "team_id", teamId, "error", result.Error)
		return evaluation{}, result.Error
	}
	if len(legacy) == 0 {
		return evaluation{Generation: evalGenNone, Stages: map[string]wire.StageEvaluation{}}, nil
	}

	sort.SliceStable(legacy, func(i, j int) bool {
		return schema.StageRank(legacy[i].StageName) < schema.StageRank(legacy[j].StageName)
	})

	stages := make(map[string]wire.StageEvaluation, len(legacy))
	for _, row := range legacy {
		stages[row.StageName] = wire.StageEvaluation{
			Stage:           row.StageName,
			PositiveTags:    splitTags(row.Strengths),
			ImprovementTags: splitTags(row.Improvements),
			OtherComment:    row.Comment,
		}
	}
	return evaluation{Generation: evalGenV1, Stages: stages}, nil
}

// splitTags breaks the legacy comma-joined strings into tag lists. Both the
// ASCII and fullwidth comma appear in old data.
func splitTags(joined string) []string {
	joined = strings.ReplaceAll(joined, "，", ",")
	parts := strings.Split(joined, ",")

	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
