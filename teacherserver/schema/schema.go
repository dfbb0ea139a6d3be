package schema

import "fmt"

// Timestamps are millisecond epoch integers throughout, matching the values
// the field clients send.

type Team struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"uniqueIndex;size:200;not null"`

	School      string `gorm:"size:100;not null;uniqueIndex:idx_team_identity"`
	Grade       string `gorm:"size:50;not null;uniqueIndex:idx_team_identity"`
	ClassName   string `gorm:"size:50;not null;uniqueIndex:idx_team_identity"`
	StoveNumber string `gorm:"size:50;not null;uniqueIndex:idx_team_identity"`

	MemberCount int    `gorm:"not null;default:0"`
	MemberNames string `gorm:"not null;default:''"`

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

// TeamKey derives the identifier used as the foreign key by every child
// entity. Two submissions with the same four identity fields always collapse
// onto the same row.
func TeamKey(school, grade, className, stoveNumber string) string {
	return fmt.Sprintf("%v_%v_%v_%v", school, grade, className, stoveNumber)
}

func (t *Team) DisplayName() string {
	return fmt.Sprintf("%v %v年级 %v 炉号%v", t.School, t.Grade, t.ClassName, t.StoveNumber)
}

type TeamDivision struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"uniqueIndex;size:200;not null"`
	Team   *Team  `gorm:"foreignKey:TeamId;references:TeamId;constraint:OnDelete:CASCADE"`

	GroupLeader   string
	GroupCooking  string
	GroupSoupRice string
	GroupFire     string
	GroupHealth   string

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

// Empty reports whether every role assignment is blank. An all-empty division
// is treated as "no division" and is never stored.
func (d *TeamDivision) Empty() bool {
	return d.GroupLeader == "" && d.GroupCooking == "" && d.GroupSoupRice == "" &&
		d.GroupFire == "" && d.GroupHealth == ""
}

type ProcessRecord struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"uniqueIndex;size:200;not null"`
	Team   *Team  `gorm:"foreignKey:TeamId;references:TeamId;constraint:OnDelete:CASCADE"`

	StartTime    int64 `gorm:"not null"`
	EndTime      *int64
	CurrentStage string `gorm:"size:50"`
	OverallNotes string

	Stages []StageRecord `gorm:"foreignKey:ProcessRecordId;constraint:OnDelete:CASCADE"`

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

type StageRecord struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	ProcessRecordId uint   `gorm:"not null;uniqueIndex:idx_stage_per_process;index"`
	StageName       string `gorm:"size:50;not null;uniqueIndex:idx_stage_per_process"`

	StartTime int64 `gorm:"not null"`
	EndTime   *int64

	SelfRating   int `gorm:"default:0"`
	Notes        string
	ProblemNotes string
	IsCompleted  bool `gorm:"not null;default:false"`

	// JSON-encoded list of selected tag identifiers.
	SelectedTags string `gorm:"default:'[]'"`

	Media []MediaItem `gorm:"foreignKey:StageRecordId;constraint:OnDelete:CASCADE"`

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

// MediaItem attaches either to a stage record or to one of the three summary
// questions, never both. FilePath may reference a client-local path until the
// corresponding upload arrives; the two are not transactionally linked.
type MediaItem struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	StageRecordId *uint `gorm:"index"`

	SummaryDataId   *uint        `gorm:"index"`
	SummaryData     *SummaryData `gorm:"foreignKey:SummaryDataId;constraint:OnDelete:CASCADE"`
	SummaryQuestion *int

	FilePath string `gorm:"not null;index"`
	FileType string `gorm:"size:20;not null;index"`
	FileSize int64
	// Capture time reported by the client.
	Timestamp int64 `gorm:"not null"`

	CreatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

const (
	MediaPhoto = "PHOTO"
	MediaVideo = "VIDEO"
)

type SummaryData struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"uniqueIndex;size:200;not null"`
	Team   *Team  `gorm:"foreignKey:TeamId;references:TeamId;constraint:OnDelete:CASCADE"`

	Answer1 string
	Answer2 string
	Answer3 string

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

// TeacherEvaluation is the first generation of the evaluation entity: one row
// per (team, stage). Kept readable for legacy data, no new writes.
type TeacherEvaluation struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"size:200;not null;uniqueIndex:idx_eval_per_stage;index"`
	Team   *Team  `gorm:"foreignKey:TeamId;references:TeamId;constraint:OnDelete:CASCADE"`

	StageName string `gorm:"size:50;uniqueIndex:idx_eval_per_stage"`

	Rating       int `gorm:"not null;default:0"`
	Comment      string
	Strengths    string
	Improvements string
	Timestamp    int64 `gorm:"not null"`

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:1"`
}

// TeacherEvaluationV2 is the second generation: one row per team holding the
// whole stage map as a JSON payload. Supersedes generation 1 for all writes.
type TeacherEvaluationV2 struct {
	Id uint `gorm:"primaryKey;autoIncrement"`

	TeamId string `gorm:"uniqueIndex;size:200;not null"`
	Team   *Team  `gorm:"foreignKey:TeamId;references:TeamId;constraint:OnDelete:CASCADE"`

	// JSON map of stage name -> {positiveTags, improvementTags, otherComment}.
	Evaluations string `gorm:"not null;default:'{}'"`
	Timestamp   int64  `gorm:"not null"`

	CreatedAt     int64 `gorm:"not null"`
	UpdatedAt     int64 `gorm:"not null"`
	SchemaVersion int   `gorm:"not null;default:2"`
}

// TeacherEvaluationTeam is a denormalized display-name lookup maintained
// alongside every generation-2 write, so the name shown in the evaluation
// roster survives independently of the teams table.
type TeacherEvaluationTeam struct {
	TeamId    string `gorm:"primaryKey;size:200"`
	TeamName  string `gorm:"not null"`
	UpdatedAt int64  `gorm:"not null"`
}
