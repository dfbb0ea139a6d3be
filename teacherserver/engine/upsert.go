package engine

import (
	"log/slog"

	"campcooking/teacherserver/schema"

	"gorm.io/gorm"
)

// The upsert engine: look up by natural key, update every mutable column and
// bump updated_at if found, insert with both timestamps otherwise. The
// check-then-act is not a single atomic statement; the enclosing transaction
// closes the race. Never deletes.

func upsertTeam(txn *gorm.DB, team schema.Team, now int64) (uint, error) {
	var existing schema.Team
	result := txn.Limit(1).Find(&existing, "team_id = ?", team.TeamId)
	if result.Error != nil {
		slog.Error("sql error looking up team", "team_id", team.TeamId, "error", result.Error)
		return 0, result.Error
	}

	if result.RowsAffected != 0 {
		result = txn.Model(&schema.Team{}).Where("team_id = ?", team.TeamId).Updates(map[string]interface{}{
			"school":       team.School,
			"grade":        team.Grade,
			"class_name":   team.ClassName,
			"stove_number": team.StoveNumber,
			"member_count": team.MemberCount,
			"member_names": team.MemberNames,
			"updated_at":   now,
		})
		if result.Error != nil {
			slog.Error("sql error updating team", "team_id", team.TeamId, "error", result.Error)
			return 0, result.Error
		}
		return existing.Id, nil
	}

	team.CreatedAt = now
	team.UpdatedAt = now
	result = txn.Create(&team)
	if result.Error != nil {
		slog.Error("sql error inserting team", "team_id", team.TeamId, "error", result.Error)
		return 0, result.Error
	}
	return team.Id, nil
}

func upsertDivision(txn *gorm.DB, div schema.TeamDivision, now int64) (uint, error) {
	var existing schema.TeamDivision
	result := txn.Limit(1).Find(&existing, "team_id = ?", div.TeamId)
	if result.Error != nil {
		slog.Error("sql error looking up team division", "team_id", div.TeamId, "error", result.Error)
		return 0, result.Error
	}

	if result.RowsAffected != 0 {
		result = txn.Model(&schema.TeamDivision{}).Where("team_id = ?", div.TeamId).Updates(map[string]interface{}{
			"group_leader":    div.GroupLeader,
			"group_cooking":   div.GroupCooking,
			"group_soup_rice": div.GroupSoupRice,
			"group_fire":      div.GroupFire,
			"group_health":    div.GroupHealth,
			"updated_at":      now,
		})
		if result.Error != nil {
			slog.Error("sql error updating team division", "team_id", div.TeamId, "error", result.Error)
			return 0, result.Error
		}
		return existing.Id, nil
	}

	div.CreatedAt = now
	div.UpdatedAt = now
	result = txn.Create(&div)
	if result.Error != nil {
		slog.Error("sql error inserting team division", "team_id", div.TeamId, "error", result.Error)
		return 0, result.Error
	}
	return div.Id, nil
}

// upsertProcess also reports whether a row already existed, since the subtree
// writer must clear the old stage set before inserting the new one.
func upsertProcess(txn *gorm.DB, rec schema.ProcessRecord, now int64) (uint, bool, error) {
	var existing schema.ProcessRecord
	result := txn.Limit(1).Find(&existing, "team_id = ?", rec.TeamId)
	if result.Error != nil {
		slog.Error("sql error looking up process record", "team_id", rec.TeamId, "error", result.Error)
		return 0, false, result.Error
	}

	if result.RowsAffected != 0 {
		result = txn.Model(&schema.ProcessRecord{}).Where("team_id = ?", rec.TeamId).Updates(map[string]interface{}{
			"start_time":    rec.StartTime,
			"end_time":      rec.EndTime,
			"current_stage": rec.CurrentStage,
			"overall_notes": rec.OverallNotes,
			"updated_at":    now,
		})
		if result.Error != nil {
			slog.Error("sql error updating process record", "team_id", rec.TeamId, "error", result.Error)
			return 0, false, result.Error
		}
		return existing.Id, true, nil
	}

	rec.CreatedAt = now
	rec.UpdatedAt = now
	result = txn.Create(&rec)
	if result.Error != nil {
		slog.Error("sql error inserting process record", "team_id", rec.TeamId, "error", result.Error)
		return 0, false, result.Error
	}
	return rec.Id, false, nil
}

func upsertSummary(txn *gorm.DB, summary schema.SummaryData, now int64) (uint, error) {
	var existing schema.SummaryData
	result := txn.Limit(1).Find(&existing, "team_id = ?", summary.TeamId)
	if result.Error != nil {
		slog.Error("sql error looking up summary data", "team_id", summary.TeamId, "error", result.Error)
		return 0, result.Error
	}

	if result.RowsAffected != 0 {
		result = txn.Model(&schema.SummaryData{}).Where("team_id = ?", summary.TeamId).Updates(map[string]interface{}{
			"answer1":    summary.Answer1,
			"answer2":    summary.Answer2,
			"answer3":    summary.Answer3,
			"updated_at": now,
		})
		if result.Error != nil {
			slog.Error("sql error updating summary data", "team_id", summary.TeamId, "error", result.Error)
			return 0, result.Error
		}
		return existing.Id, nil
	}

	summary.CreatedAt = now
	summary.UpdatedAt = now
	result = txn.Create(&summary)
	if result.Error != nil {
		slog.Error("sql error inserting summary data", "team_id", summary.TeamId, "error", result.Error)
		return 0, result.Error
	}
	return summary.Id, nil
}

func upsertEvaluationV2(txn *gorm.DB, eval schema.TeacherEvaluationV2, now int64) (uint, error) {
	var existing schema.TeacherEvaluationV2
	result := txn.Limit(1).Find(&existing, "team_id = ?", eval.TeamId)
	if result.Error != nil {
		slog.Error("sql error looking up evaluation", "team_id", eval.TeamId, "error", result.Error)
		return 0, result.Error
	}

	if result.RowsAffected != 0 {
		result = txn.Model(&schema.TeacherEvaluationV2{}).Where("team_id = ?", eval.TeamId).Updates(map[string]interface{}{
			"evaluations": eval.Evaluations,
			"timestamp":   eval.Timestamp,
			"updated_at":  now,
		})
		if result.Error != nil {
			slog.Error("sql error updating evaluation", "team_id", eval.TeamId, "error", result.Error)
			return 0, result.Error
		}
		return existing.Id, nil
	}

	eval.CreatedAt = now
	eval.UpdatedAt = now
	result = txn.Create(&eval)
	if result.Error != nil {
		slog.Error("sql error inserting evaluation", "team_id", eval.TeamId, "error", result.Error)
		return 0, result.Error
	}
	return eval.Id, nil
}

func upsertEvaluationTeam(txn *gorm.DB, lookup schema.TeacherEvaluationTeam) error {
	result := txn.Save(&lookup)
	if result.Error != nil {
		slog.Error("sql error saving evaluation team lookup", "team_id", lookup.TeamId, "error", result.Error)
		return result.Error
	}
	return nil
}
