package db

import (
	"campcooking/teacherserver/schema"
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies the schema generations in order. On a clean database the
// full current schema is created directly instead of replaying history.
func Migrate(gdb *gorm.DB) error {
	migration := gormigrate.New(gdb, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// Original single generation evaluation schema.
			ID: "1",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(
					&schema.Team{}, &schema.TeamDivision{}, &schema.ProcessRecord{},
					&schema.StageRecord{}, &schema.SummaryData{}, &schema.MediaItem{},
					&schema.TeacherEvaluation{},
				)
			},
		},
		{
			// Second generation evaluation storage plus the denormalized
			// name lookup used by the evaluation roster.
			ID: "2",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&schema.TeacherEvaluationV2{}, &schema.TeacherEvaluationTeam{})
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Migrator().DropTable(&schema.TeacherEvaluationV2{}, &schema.TeacherEvaluationTeam{})
			},
		},
	})

	migration.InitSchema(func(txn *gorm.DB) error {
		slog.Info("clean database detected, running full schema initialization")
		return txn.AutoMigrate(schema.MigrationOrder()...)
	})

	if err := migration.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
