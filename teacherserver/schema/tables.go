package schema

// Explicit table names, kept identical to the original deployment's layout so
// existing databases keep working across server upgrades.

func (Team) TableName() string                  { return "teams" }
func (TeamDivision) TableName() string          { return "team_divisions" }
func (ProcessRecord) TableName() string         { return "process_records" }
func (StageRecord) TableName() string           { return "stage_records" }
func (MediaItem) TableName() string             { return "media_items" }
func (SummaryData) TableName() string           { return "summary_data" }
func (TeacherEvaluation) TableName() string     { return "teacher_evaluations" }
func (TeacherEvaluationV2) TableName() string   { return "teacher_evaluations_v2" }
func (TeacherEvaluationTeam) TableName() string { return "teacher_evaluation_teams" }
