package db

import (
	"path/filepath"
	"testing"

	"campcooking/teacherserver/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTeam(stove string) schema.Team {
	return schema.Team{
		TeamId:      schema.TeamKey("NO1", "5", "2", stove),
		School:      "NO1",
		Grade:       "5",
		ClassName:   "2",
		StoveNumber: stove,
		CreatedAt:   1000,
		UpdatedAt:   1000,
	}
}

// Foreign keys are enforced on every connection, so a fresh database must
// come up with its constraints pointing from the child tables at teams, not
// the other way around. Parent rows first, then children.
func TestFreshDatabaseAcceptsWrites(t *testing.T) {
	gdb, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)

	team := testTeam("3")
	require.NoError(t, gdb.Create(&team).Error)

	division := schema.TeamDivision{TeamId: team.TeamId, GroupLeader: "张三", CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&division).Error)

	process := schema.ProcessRecord{TeamId: team.TeamId, StartTime: 1000, CurrentStage: "PREPARATION", CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&process).Error)

	stage := schema.StageRecord{ProcessRecordId: process.Id, StageName: "PREPARATION", StartTime: 1000, CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&stage).Error)

	summary := schema.SummaryData{TeamId: team.TeamId, Answer1: "ok", CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&summary).Error)

	question := 1
	media := schema.MediaItem{
		SummaryDataId:   &summary.Id,
		SummaryQuestion: &question,
		FilePath:        "media/a.jpg",
		FileType:        schema.MediaPhoto,
		Timestamp:       1000,
		CreatedAt:       1000,
	}
	require.NoError(t, gdb.Create(&media).Error)

	eval := schema.TeacherEvaluationV2{TeamId: team.TeamId, Evaluations: "{}", Timestamp: 1000, CreatedAt: 1000, UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&eval).Error)

	lookup := schema.TeacherEvaluationTeam{TeamId: team.TeamId, TeamName: "Team Eagle", UpdatedAt: 1000}
	require.NoError(t, gdb.Create(&lookup).Error)
}

func TestChildRowsRequireExistingTeam(t *testing.T) {
	gdb, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)

	process := schema.ProcessRecord{TeamId: "nobody_0_0_0", StartTime: 1000, CreatedAt: 1000, UpdatedAt: 1000}
	assert.Error(t, gdb.Create(&process).Error)
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	gdb, err := Open(path)
	require.NoError(t, err)
	team := testTeam("5")
	require.NoError(t, gdb.Create(&team).Error)

	gdb, err = Open(path)
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&schema.Team{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
