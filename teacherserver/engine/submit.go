package engine

import (
	"log/slog"

	"campcooking/teacherserver/schema"
	"campcooking/teacherserver/wire"

	"gorm.io/gorm"
)

// Submit maps a full nested submission document onto the normalized schema in
// one transaction. Resubmissions collapse onto the same team record: singleton
// children are upserted, the stage/media subtree is replaced wholesale. The
// returned identifier is the team's derived natural key.
func (e *Engine) Submit(doc *wire.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}

	teamId := doc.TeamId()
	now := nowMillis()

	err := withRetry(func() error {
		return e.db.Transaction(func(txn *gorm.DB) error {
			if _, err := upsertTeam(txn, wire.TeamFromWire(doc.TeamInfo), now); err != nil {
				return err
			}

			if doc.TeamDivision != nil {
				div := wire.DivisionFromWire(teamId, doc.TeamDivision)
				// An all-empty division means the client has none yet; it is
				// not stored as a degenerate row.
				if !div.Empty() {
					if _, err := upsertDivision(txn, div, now); err != nil {
						return err
					}
				}
			}

			if doc.ProcessRecord != nil {
				if err := writeProcessSubtree(txn, teamId, doc.ProcessRecord, now); err != nil {
					return err
				}
			}

			if doc.SummaryData != nil {
				if err := writeSummary(txn, teamId, doc.SummaryData, now); err != nil {
					return err
				}
			}

			return nil
		})
	})
	if err != nil {
		return "", err
	}

	slog.Info("submission persisted", "team_id", teamId,
		"has_process", doc.ProcessRecord != nil, "has_summary", doc.SummaryData != nil)
	return teamId, nil
}

// writeProcessSubtree replaces the team's entire process record subtree: the
// header is upserted, every previous stage row is dropped (media cascades),
// and the incoming stage set is inserted fresh. Diff/merge is deliberately
// avoided; every resubmission carries the complete current snapshot.
func writeProcessSubtree(txn *gorm.DB, teamId string, rec *wire.ProcessRecord, now int64) error {
	processId, existed, err := upsertProcess(txn, wire.ProcessFromWire(teamId, rec), now)
	if err != nil {
		return err
	}

	if existed {
		result := txn.Where("process_record_id = ?", processId).Delete(&schema.StageRecord{})
		if result.Error != nil {
			slog.Error("sql error clearing previous stage records", "team_id", teamId, "error", result.Error)
			return result.Error
		}
	}

	for name, stage := range rec.Stages {
		if !schema.ValidStage(name) {
			slog.Warn("skipping stage outside the fixed stage set", "team_id", teamId, "stage", name)
			continue
		}

		row := wire.StageFromWire(name, &stage)
		row.ProcessRecordId = processId
		row.CreatedAt = now
		row.UpdatedAt = now

		result := txn.Create(&row)
		if result.Error != nil {
			slog.Error("sql error inserting stage record", "team_id", teamId, "stage", name, "error", result.Error)
			return result.Error
		}

		if err := insertStageMedia(txn, teamId, row.Id, &stage, now); err != nil {
			return err
		}
	}

	return nil
}

// insertStageMedia writes the stage's media entries, accepting both client
// naming variants for the media list. One malformed entry is logged and
// skipped; losing a photo must never lose the whole submission.
func insertStageMedia(txn *gorm.DB, teamId string, stageId uint, stage *wire.Stage, now int64) error {
	for _, raw := range stage.StageMedia() {
		item, err := wire.MediaFromWire(raw)
		if err != nil {
			slog.Warn("skipping malformed media entry", "team_id", teamId, "stage", stage.Stage, "error", err)
			continue
		}

		item.StageRecordId = &stageId
		item.CreatedAt = now
		if item.Timestamp == 0 {
			item.Timestamp = now
		}

		result := txn.Create(&item)
		if result.Error != nil {
			if isBusy(result.Error) {
				return result.Error
			}
			slog.Warn("skipping media entry that failed to insert", "team_id", teamId, "stage", stage.Stage,
				"path", item.FilePath, "error", result.Error)
		}
	}

	return nil
}

// writeSummary upserts the closing-reflection answers and replaces the
// summary-question photo set, mirroring the stage subtree's replace-on-write
// policy.
func writeSummary(txn *gorm.DB, teamId string, summary *wire.SummaryData, now int64) error {
	summaryId, err := upsertSummary(txn, wire.SummaryFromWire(teamId, summary), now)
	if err != nil {
		return err
	}

	result := txn.Where("summary_data_id = ?", summaryId).Delete(&schema.MediaItem{})
	if result.Error != nil {
		slog.Error("sql error clearing previous summary media", "team_id", teamId, "error", result.Error)
		return result.Error
	}

	for question, photos := range summary.SummaryPhotos() {
		for _, path := range photos {
			if path == "" {
				continue
			}
			item := schema.MediaItem{
				SummaryDataId:   &summaryId,
				SummaryQuestion: &question,
				FilePath:        path,
				FileType:        schema.MediaPhoto,
				Timestamp:       now,
				CreatedAt:       now,
			}
			result := txn.Create(&item)
			if result.Error != nil {
				if isBusy(result.Error) {
					return result.Error
				}
				slog.Warn("skipping summary photo that failed to insert", "team_id", teamId,
					"question", question, "path", path, "error", result.Error)
			}
		}
	}

	return nil
}
