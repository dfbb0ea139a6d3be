package schema

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"
)

var (
	ErrTeamNotFound   = errors.New("team not found")
	ErrDbAccessFailed = errors.New("db access failed")
)

func GetTeam(teamId string, db *gorm.DB) (Team, error) {
	var team Team

	result := db.First(&team, "team_id = ?", teamId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return team, ErrTeamNotFound
		}
		slog.Error("sql error in get team", "team_id", teamId, "error", result.Error)
		return team, ErrDbAccessFailed
	}

	return team, nil
}

// AllTables lists every entity in FK-safe delete order, children before
// parents.
func AllTables() []interface{} {
	return []interface{}{
		&MediaItem{},
		&StageRecord{},
		&ProcessRecord{},
		&SummaryData{},
		&TeacherEvaluation{},
		&TeacherEvaluationV2{},
		&TeacherEvaluationTeam{},
		&TeamDivision{},
		&Team{},
	}
}

// MigrationOrder lists every entity parent-first so that foreign keys created
// during schema migration reference tables that already exist.
func MigrationOrder() []interface{} {
	tables := AllTables()
	ordered := make([]interface{}, len(tables))
	for i, table := range tables {
		ordered[len(tables)-1-i] = table
	}
	return ordered
}
