package wire

import (
	"encoding/json"
	"log/slog"

	"campcooking/teacherserver/schema"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the identity block every submission must carry. All other
// fields default permissively instead of failing, because strict schemas
// would break older client versions.
func (d *Document) Validate() error {
	if d.TeamInfo == nil {
		return Invalid("missing teamInfo block")
	}
	if err := validate.Struct(d.TeamInfo); err != nil {
		return Invalid("incomplete team identity: %v", err)
	}
	return nil
}

// TeamId derives the natural-key identifier for this document.
func (d *Document) TeamId() string {
	if d.TeamInfo == nil {
		return ""
	}
	return schema.TeamKey(d.TeamInfo.School, d.TeamInfo.Grade, d.TeamInfo.ClassName, d.TeamInfo.StoveNumber)
}

func TeamFromWire(info *TeamInfo) schema.Team {
	return schema.Team{
		TeamId:      schema.TeamKey(info.School, info.Grade, info.ClassName, info.StoveNumber),
		School:      info.School,
		Grade:       info.Grade,
		ClassName:   info.ClassName,
		StoveNumber: info.StoveNumber,
		MemberCount: info.MemberCount,
		MemberNames: info.MemberNames,
	}
}

func TeamToWire(team *schema.Team) TeamInfo {
	return TeamInfo{
		School:      team.School,
		Grade:       team.Grade,
		ClassName:   team.ClassName,
		StoveNumber: team.StoveNumber,
		MemberCount: team.MemberCount,
		MemberNames: team.MemberNames,
	}
}

func DivisionFromWire(teamId string, div *TeamDivision) schema.TeamDivision {
	return schema.TeamDivision{
		TeamId:        teamId,
		GroupLeader:   div.GroupLeader,
		GroupCooking:  div.GroupCooking,
		GroupSoupRice: div.GroupSoupRice,
		GroupFire:     div.GroupFire,
		GroupHealth:   div.GroupHealth,
	}
}

func DivisionToWire(div *schema.TeamDivision) TeamDivision {
	return TeamDivision{
		GroupLeader:   div.GroupLeader,
		GroupCooking:  div.GroupCooking,
		GroupSoupRice: div.GroupSoupRice,
		GroupFire:     div.GroupFire,
		GroupHealth:   div.GroupHealth,
	}
}

func ProcessFromWire(teamId string, rec *ProcessRecord) schema.ProcessRecord {
	currentStage := rec.CurrentStage
	if currentStage == "" {
		currentStage = schema.StageOrder[0]
	}
	return schema.ProcessRecord{
		TeamId:       teamId,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		CurrentStage: currentStage,
		OverallNotes: rec.OverallNotes,
	}
}

func StageFromWire(name string, stage *Stage) schema.StageRecord {
	tags := "[]"
	if len(stage.SelectedTags) > 0 {
		if encoded, err := json.Marshal(stage.SelectedTags); err == nil {
			tags = string(encoded)
		}
	}
	return schema.StageRecord{
		StageName:    name,
		StartTime:    stage.StartTime,
		EndTime:      stage.EndTime,
		SelfRating:   stage.SelfRating,
		Notes:        stage.Notes,
		ProblemNotes: stage.ProblemNotes,
		IsCompleted:  stage.IsCompleted,
		SelectedTags: tags,
	}
}

func StageToWire(rec *schema.StageRecord, media []schema.MediaItem) Stage {
	var tags []string
	if rec.SelectedTags != "" {
		if err := json.Unmarshal([]byte(rec.SelectedTags), &tags); err != nil {
			slog.Warn("unreadable selected tags, defaulting to empty", "stage", rec.StageName, "error", err)
			tags = nil
		}
	}

	items := make([]json.RawMessage, 0, len(media))
	photos := make([]string, 0, len(media))
	for i := range media {
		photos = append(photos, media[i].FilePath)
		encoded, err := json.Marshal(MediaToWire(&media[i]))
		if err != nil {
			continue
		}
		items = append(items, encoded)
	}

	if tags == nil {
		tags = []string{}
	}

	return Stage{
		Stage:        rec.StageName,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		MediaItems:   items,
		Photos:       photos,
		SelfRating:   rec.SelfRating,
		SelectedTags: tags,
		Notes:        rec.Notes,
		ProblemNotes: rec.ProblemNotes,
		IsCompleted:  rec.IsCompleted,
	}
}

// StageMedia merges the two accepted media-list variants into raw entries.
// Bare photo paths are rewrapped as object entries so downstream handling is
// uniform.
func (s *Stage) StageMedia() []json.RawMessage {
	entries := make([]json.RawMessage, 0, len(s.MediaItems)+len(s.Photos))
	entries = append(entries, s.MediaItems...)

	for _, path := range s.Photos {
		if path == "" {
			continue
		}
		encoded, err := json.Marshal(MediaItem{Path: path, Type: schema.MediaPhoto})
		if err != nil {
			continue
		}
		entries = append(entries, encoded)
	}

	return entries
}

// MediaFromWire constructs a single media row from a raw entry. A malformed
// entry fails here and only here; callers log and skip it rather than abort
// the enclosing stage.
func MediaFromWire(raw json.RawMessage) (schema.MediaItem, error) {
	var item MediaItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return schema.MediaItem{}, Invalid("malformed media entry: %v", err)
	}
	if item.Path == "" {
		return schema.MediaItem{}, Invalid("media entry missing path")
	}

	fileType := item.Type
	if fileType != schema.MediaPhoto && fileType != schema.MediaVideo {
		fileType = schema.MediaPhoto
	}

	return schema.MediaItem{
		FilePath:  item.Path,
		FileType:  fileType,
		FileSize:  item.Size,
		Timestamp: item.Timestamp,
	}, nil
}

func MediaToWire(item *schema.MediaItem) MediaItem {
	return MediaItem{
		Path:      item.FilePath,
		Type:      item.FileType,
		Size:      item.FileSize,
		Timestamp: item.Timestamp,
	}
}

func SummaryFromWire(teamId string, summary *SummaryData) schema.SummaryData {
	return schema.SummaryData{
		TeamId:  teamId,
		Answer1: summary.Answer1,
		Answer2: summary.Answer2,
		Answer3: summary.Answer3,
	}
}

// SummaryToWire rebuilds the summary subtree; question photos are reattached
// by the caller from their media rows.
func SummaryToWire(summary *schema.SummaryData) SummaryData {
	return SummaryData{
		Answer1: summary.Answer1,
		Answer2: summary.Answer2,
		Answer3: summary.Answer3,
		Photos1: []string{},
		Photos2: []string{},
		Photos3: []string{},
	}
}

// SummaryPhotos returns the photo lists keyed by 1-based question index.
func (s *SummaryData) SummaryPhotos() map[int][]string {
	return map[int][]string{1: s.Photos1, 2: s.Photos2, 3: s.Photos3}
}
