package engine

import (
	"log/slog"

	"campcooking/teacherserver/schema"

	"gorm.io/gorm"
)

// Statistics matches the shape the teacher app's dashboard expects.
type Statistics struct {
	TotalTeams           int64   `json:"totalTeams"`
	TeamsWithProcess     int64   `json:"teamsWithProcess"`
	TeamsWithSummary     int64   `json:"teamsWithSummary"`
	AverageCompletion    float64 `json:"averageCompletion"`
	TotalCompletedStages int64   `json:"totalCompletedStages"`
	TotalStages          int64   `json:"totalStages"`
}

func (e *Engine) GetStatistics() (Statistics, error) {
	var stats Statistics

	err := withRetry(func() error {
		counts := []struct {
			model interface{}
			dest  *int64
		}{
			{&schema.Team{}, &stats.TotalTeams},
			{&schema.ProcessRecord{}, &stats.TeamsWithProcess},
			{&schema.SummaryData{}, &stats.TeamsWithSummary},
			{&schema.StageRecord{}, &stats.TotalStages},
		}
		for _, count := range counts {
			result := e.db.Model(count.model).Count(count.dest)
			if result.Error != nil {
				slog.Error("sql error counting rows for statistics", "error", result.Error)
				return result.Error
			}
		}

		result := e.db.Model(&schema.StageRecord{}).Where("is_completed = ?", true).Count(&stats.TotalCompletedStages)
		if result.Error != nil {
			slog.Error("sql error counting completed stages", "error", result.Error)
			return result.Error
		}

		return nil
	})
	if err != nil {
		return Statistics{}, err
	}

	if stats.TotalStages > 0 {
		stats.AverageCompletion = float64(stats.TotalCompletedStages) / float64(stats.TotalStages) * 100
	}
	return stats, nil
}

func (e *Engine) TeamCount() (int64, error) {
	var count int64
	err := withRetry(func() error {
		result := e.db.Model(&schema.Team{}).Count(&count)
		if result.Error != nil {
			slog.Error("sql error counting teams", "error", result.Error)
			return result.Error
		}
		return nil
	})
	return count, err
}

// ClearAll wipes every table in FK-safe order, children before parents, and
// reports the per-table deleted counts. The shared-secret gate lives in the
// caller.
func (e *Engine) ClearAll() (map[string]int64, error) {
	counts := map[string]int64{}

	err := withRetry(func() error {
		return e.db.Transaction(func(txn *gorm.DB) error {
			for _, model := range schema.AllTables() {
				result := txn.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model)
				if result.Error != nil {
					slog.Error("sql error clearing table", "error", result.Error)
					return result.Error
				}
				counts[tableName(txn, model)] = result.RowsAffected
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("cleared all data", "counts", counts)
	return counts, nil
}

func tableName(txn *gorm.DB, model interface{}) string {
	stmt := &gorm.Statement{DB: txn}
	if err := stmt.Parse(model); err == nil {
		return stmt.Table
	}
	return "unknown"
}
