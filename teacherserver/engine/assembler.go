package engine

import (
	"log/slog"
	"sort"

	"campcooking/teacherserver/schema"
	"campcooking/teacherserver/wire"
)

// GetTeamDocument reconstructs the nested submission document from the
// normalized rows. Stages come back in the canonical stage sequence with their
// media reattached in capture order; absent subtrees stay nil. Per-field
// reconstruction problems degrade to defaults, a read never fails outright
// because one legacy record is malformed.
func (e *Engine) GetTeamDocument(teamId string) (*wire.Document, error) {
	var doc *wire.Document

	err := withRetry(func() error {
		team, err := schema.GetTeam(teamId, e.db)
		if err != nil {
			return err
		}

		info := wire.TeamToWire(&team)
		doc = &wire.Document{TeamInfo: &info}

		if err := e.attachDivision(doc, teamId); err != nil {
			return err
		}
		if err := e.attachProcess(doc, teamId); err != nil {
			return err
		}
		if err := e.attachSummary(doc, teamId); err != nil {
			return err
		}

		evaluation, err := e.loadEvaluation(teamId)
		if err != nil {
			return err
		}
		if len(evaluation.Stages) > 0 {
			doc.TeacherEvaluation = evaluation.Stages
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (e *Engine) attachDivision(doc *wire.Document, teamId string) error {
	var div schema.TeamDivision
	result := e.db.Limit(1).Find(&div, "team_id = ?", teamId)
	if result.Error != nil {
		slog.Error("sql error loading team division", "team_id", teamId, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected != 0 && !div.Empty() {
		wireDiv := wire.DivisionToWire(&div)
		doc.TeamDivision = &wireDiv
	}
	return nil
}

func (e *Engine) attachProcess(doc *wire.Document, teamId string) error {
	var rec schema.ProcessRecord
	result := e.db.Limit(1).Find(&rec, "team_id = ?", teamId)
	if result.Error != nil {
		slog.Error("sql error loading process record", "team_id", teamId, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	stages, err := e.loadStages(rec.Id)
	if err != nil {
		return err
	}

	wireStages := make(map[string]wire.Stage, len(stages))
	for i := range stages {
		var media []schema.MediaItem
		result := e.db.Where("stage_record_id = ?", stages[i].Id).Order("timestamp").Find(&media)
		if result.Error != nil {
			// Degrade to a stage without media rather than failing the read.
			slog.Error("sql error loading stage media", "team_id", teamId, "stage", stages[i].StageName, "error", result.Error)
			media = nil
		}
		wireStages[stages[i].StageName] = wire.StageToWire(&stages[i], media)
	}

	doc.ProcessRecord = &wire.ProcessRecord{
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		Stages:       wireStages,
		CurrentStage: rec.CurrentStage,
		OverallNotes: rec.OverallNotes,
	}
	return nil
}

// loadStages returns the stage rows in the fixed stage enumeration order,
// regardless of submission or insertion order.
func (e *Engine) loadStages(processId uint) ([]schema.StageRecord, error) {
	var stages []schema.StageRecord
	result := e.db.Where("process_record_id = ?", processId).Find(&stages)
	if result.Error != nil {
		slog.Error("sql error loading stage records", "process_record_id", processId, "error", result.Error)
		return nil, result.Error
	}

	sort.SliceStable(stages, func(i, j int) bool {
		return schema.StageRank(stages[i].StageName) < schema.StageRank(stages[j].StageName)
	})
	return stages, nil
}

func (e *Engine) attachSummary(doc *wire.Document, teamId string) error {
	var summary schema.SummaryData
	result := e.db.Limit(1).Find(&summary, "team_id = ?", teamId)
	if result.Error != nil {
		slog.Error("sql error loading summary data", "team_id", teamId, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	wireSummary := wire.SummaryToWire(&summary)

	var media []schema.MediaItem
	result = e.db.Where("summary_data_id = ?", summary.Id).Order("timestamp").Find(&media)
	if result.Error != nil {
		slog.Error("sql error loading summary media", "team_id", teamId, "error", result.Error)
		media = nil
	}
	for _, item := range media {
		if item.SummaryQuestion == nil {
			continue
		}
		switch *item.SummaryQuestion {
		case 1:
			wireSummary.Photos1 = append(wireSummary.Photos1, item.FilePath)
		case 2:
			wireSummary.Photos2 = append(wireSummary.Photos2, item.FilePath)
		case 3:
			wireSummary.Photos3 = append(wireSummary.Photos3, item.FilePath)
		}
	}

	doc.SummaryData = &wireSummary
	return nil
}
