// Package wire defines the JSON shapes exchanged with the field clients and
// the mapping between those shapes and the storage rows. Client payloads have
// evolved over several app versions, so every field outside the team identity
// block is optional and defaults permissively.
package wire

import (
	"encoding/json"
	"fmt"
)

// Document is the full nested payload a client submits. Absent subtrees mean
// "do not touch that entity this round", not "delete it".
type Document struct {
	TeamInfo      *TeamInfo      `json:"teamInfo"`
	TeamDivision  *TeamDivision  `json:"teamDivision,omitempty"`
	ProcessRecord *ProcessRecord `json:"processRecord,omitempty"`
	SummaryData   *SummaryData   `json:"summaryData,omitempty"`

	// Teacher-side reads attach the reconciled evaluation here; clients never
	// send it.
	TeacherEvaluation map[string]StageEvaluation `json:"teacherEvaluation,omitempty"`

	ExportTime int64 `json:"exportTime,omitempty"`
}

type TeamInfo struct {
	School      string `json:"school" validate:"required"`
	Grade       string `json:"grade" validate:"required"`
	ClassName   string `json:"className" validate:"required"`
	StoveNumber string `json:"stoveNumber" validate:"required"`
	MemberCount int    `json:"memberCount"`
	MemberNames string `json:"memberNames"`
}

type TeamDivision struct {
	GroupLeader   string `json:"groupLeader"`
	GroupCooking  string `json:"groupCooking"`
	GroupSoupRice string `json:"groupSoupRice"`
	GroupFire     string `json:"groupFire"`
	GroupHealth   string `json:"groupHealth"`
}

type ProcessRecord struct {
	StartTime    int64            `json:"startTime"`
	EndTime      *int64           `json:"endTime"`
	Stages       map[string]Stage `json:"stages"`
	CurrentStage string           `json:"currentStage"`
	OverallNotes string           `json:"overallNotes"`
}

type Stage struct {
	Stage     string `json:"stage"`
	StartTime int64  `json:"startTime"`
	EndTime   *int64 `json:"endTime"`

	// Two accepted naming variants for the media list: newer clients send
	// mediaItems (objects), older ones send photos (bare paths). Entries are
	// raw so that one malformed item cannot fail the whole stage.
	MediaItems []json.RawMessage `json:"mediaItems"`
	Photos     []string          `json:"photos"`

	SelfRating   int      `json:"selfRating"`
	SelectedTags []string `json:"selectedTags"`
	Notes        string   `json:"notes"`
	ProblemNotes string   `json:"problemNotes"`
	IsCompleted  bool     `json:"isCompleted"`
}

type MediaItem struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Size      int64  `json:"size,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type SummaryData struct {
	Answer1 string   `json:"answer1"`
	Answer2 string   `json:"answer2"`
	Answer3 string   `json:"answer3"`
	Photos1 []string `json:"photos1"`
	Photos2 []string `json:"photos2"`
	Photos3 []string `json:"photos3"`
}

// StageEvaluation is the generation-2 evaluation shape for a single stage.
// Generation-1 rows are translated into this shape on read.
type StageEvaluation struct {
	Stage           string   `json:"stage"`
	PositiveTags    []string `json:"positiveTags"`
	ImprovementTags []string `json:"improvementTags"`
	OtherComment    string   `json:"otherComment"`
}

// ValidationError marks a submission whose required identity fields are
// missing or unparseable. Surfaced to the client as a 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %v", e.Reason)
}

func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
