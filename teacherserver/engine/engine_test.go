package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"campcooking/teacherserver/db"
	"campcooking/teacherserver/schema"
	"campcooking/teacherserver/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngine(t *testing.T) *Engine {
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return New(gdb)
}

func testDoc(stove string) *wire.Document {
	return &wire.Document{
		TeamInfo: &wire.TeamInfo{
			School:      "实验小学",
			Grade:       "五",
			ClassName:   "二班",
			StoveNumber: stove,
			MemberCount: 8,
			MemberNames: "张三,李四",
		},
	}
}

func fullDoc(stove string) *wire.Document {
	doc := testDoc(stove)
	doc.TeamDivision = &wire.TeamDivision{
		GroupLeader:  "张三",
		GroupCooking: "李四",
		GroupFire:    "王五",
	}
	end := int64(2000)
	doc.ProcessRecord = &wire.ProcessRecord{
		StartTime:    1000,
		EndTime:      &end,
		CurrentStage: "COOKING_RICE",
		OverallNotes: "进展顺利",
		Stages: map[string]wire.Stage{
			"PREPARATION": {
				Stage:     "PREPARATION",
				StartTime: 1000,
				MediaItems: []json.RawMessage{
					json.RawMessage(`{"path":"prep_1.jpg","type":"PHOTO","timestamp":1100}`),
					json.RawMessage(`{"path":"prep_2.mp4","type":"VIDEO","timestamp":1200}`),
				},
				SelfRating:   4,
				SelectedTags: []string{"分工明确", "动作迅速"},
				IsCompleted:  true,
			},
			"COOKING_RICE": {
				Stage:     "COOKING_RICE",
				StartTime: 1500,
				Photos:    []string{"rice_1.jpg"},
				Notes:     "水放多了",
			},
		},
	}
	doc.SummaryData = &wire.SummaryData{
		Answer1: "学会了生火",
		Answer2: "下次带够柴火",
		Photos2: []string{"summary_a.jpg", "summary_b.jpg"},
	}
	return doc
}

func count(t *testing.T, e *Engine, model interface{}, query string, args ...interface{}) int64 {
	var n int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestSubmitAndReadBack(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(fullDoc("3号炉"))
	require.NoError(t, err)
	assert.Equal(t, "实验小学_五_二班_3号炉", teamId)

	doc, err := e.GetTeamDocument(teamId)
	require.NoError(t, err)

	require.NotNil(t, doc.TeamInfo)
	assert.Equal(t, "实验小学", doc.TeamInfo.School)
	assert.Equal(t, "3号炉", doc.TeamInfo.StoveNumber)
	assert.Equal(t, 8, doc.TeamInfo.MemberCount)

	require.NotNil(t, doc.TeamDivision)
	assert.Equal(t, "张三", doc.TeamDivision.GroupLeader)
	assert.Equal(t, "王五", doc.TeamDivision.GroupFire)

	require.NotNil(t, doc.ProcessRecord)
	assert.Equal(t, "COOKING_RICE", doc.ProcessRecord.CurrentStage)
	require.Len(t, doc.ProcessRecord.Stages, 2)

	prep := doc.ProcessRecord.Stages["PREPARATION"]
	assert.True(t, prep.IsCompleted)
	assert.Equal(t, 4, prep.SelfRating)
	assert.Equal(t, []string{"分工明确", "动作迅速"}, prep.SelectedTags)
	assert.ElementsMatch(t, []string{"prep_1.jpg", "prep_2.mp4"}, mediaPaths(t, prep.MediaItems))

	rice := doc.ProcessRecord.Stages["COOKING_RICE"]
	assert.Equal(t, "水放多了", rice.Notes)
	assert.Contains(t, rice.Photos, "rice_1.jpg")

	require.NotNil(t, doc.SummaryData)
	assert.Equal(t, "学会了生火", doc.SummaryData.Answer1)
	assert.ElementsMatch(t, []string{"summary_a.jpg", "summary_b.jpg"}, doc.SummaryData.Photos2)
	assert.Empty(t, doc.SummaryData.Photos1)

	assert.Nil(t, doc.TeacherEvaluation)
}

func mediaPaths(t *testing.T, raws []json.RawMessage) []string {
	paths := make([]string, 0, len(raws))
	for _, raw := range raws {
		var item wire.MediaItem
		require.NoError(t, json.Unmarshal(raw, &item))
		paths = append(paths, item.Path)
	}
	return paths
}

func TestResubmissionIsIdempotent(t *testing.T) {
	e := setupEngine(t)

	first, err := e.Submit(fullDoc("1号炉"))
	require.NoError(t, err)

	again := fullDoc("1号炉")
	again.TeamInfo.MemberNames = "张三,李四,赵六"
	second, err := e.Submit(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.EqualValues(t, 1, count(t, e, &schema.Team{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.TeamDivision{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.ProcessRecord{}, ""))
	assert.EqualValues(t, 2, count(t, e, &schema.StageRecord{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.SummaryData{}, ""))

	var team schema.Team
	require.NoError(t, e.db.First(&team, "team_id = ?", first).Error)
	assert.Equal(t, "张三,李四,赵六", team.MemberNames)
}

func TestStageSubtreeReplacement(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(fullDoc("2号炉"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count(t, e, &schema.StageRecord{}, ""))
	assert.EqualValues(t, 3, count(t, e, &schema.MediaItem{}, "stage_record_id IS NOT NULL"))

	smaller := testDoc("2号炉")
	smaller.ProcessRecord = &wire.ProcessRecord{
		StartTime:    1000,
		CurrentStage: "CLEANING",
		Stages: map[string]wire.Stage{
			"CLEANING": {
				Stage:  "CLEANING",
				Photos: []string{"clean.jpg"},
			},
		},
	}
	_, err = e.Submit(smaller)
	require.NoError(t, err)

	assert.EqualValues(t, 1, count(t, e, &schema.ProcessRecord{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.StageRecord{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.MediaItem{}, "stage_record_id IS NOT NULL"))

	doc, err := e.GetTeamDocument(teamId)
	require.NoError(t, err)
	require.Len(t, doc.ProcessRecord.Stages, 1)
	assert.Contains(t, doc.ProcessRecord.Stages, "CLEANING")
	assert.Equal(t, "CLEANING", doc.ProcessRecord.CurrentStage)
}

func TestSummaryPhotoReplacement(t *testing.T) {
	e := setupEngine(t)

	_, err := e.Submit(fullDoc("4号炉"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count(t, e, &schema.MediaItem{}, "summary_data_id IS NOT NULL"))

	update := testDoc("4号炉")
	update.SummaryData = &wire.SummaryData{
		Answer1: "改过的回答",
		Photos3: []string{"final.jpg"},
	}
	teamId, err := e.Submit(update)
	require.NoError(t, err)

	assert.EqualValues(t, 1, count(t, e, &schema.MediaItem{}, "summary_data_id IS NOT NULL"))

	doc, err := e.GetTeamDocument(teamId)
	require.NoError(t, err)
	assert.Equal(t, "改过的回答", doc.SummaryData.Answer1)
	assert.Empty(t, doc.SummaryData.Photos2)
	assert.Equal(t, []string{"final.jpg"}, doc.SummaryData.Photos3)
}

func TestSubmitRejectsMissingIdentity(t *testing.T) {
	e := setupEngine(t)

	var verr *wire.ValidationError

	_, err := e.Submit(&wire.Document{})
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))

	doc := testDoc("1号炉")
	doc.TeamInfo.School = ""
	_, err = e.Submit(doc)
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))

	assert.EqualValues(t, 0, count(t, e, &schema.Team{}, ""))
}

func TestUnknownStageSkipped(t *testing.T) {
	e := setupEngine(t)

	doc := testDoc("1号炉")
	doc.ProcessRecord = &wire.ProcessRecord{
		StartTime: 1000,
		Stages: map[string]wire.Stage{
			"PREPARATION":   {Stage: "PREPARATION"},
			"SECRET_SNACKS": {Stage: "SECRET_SNACKS"},
		},
	}

	teamId, err := e.Submit(doc)
	require.NoError(t, err)

	read, err := e.GetTeamDocument(teamId)
	require.NoError(t, err)
	require.Len(t, read.ProcessRecord.Stages, 1)
	assert.Contains(t, read.ProcessRecord.Stages, "PREPARATION")
}

func TestMalformedMediaEntrySkipped(t *testing.T) {
	e := setupEngine(t)

	doc := testDoc("1号炉")
	doc.ProcessRecord = &wire.ProcessRecord{
		StartTime: 1000,
		Stages: map[string]wire.Stage{
			"FIRE_MAKING": {
				Stage: "FIRE_MAKING",
				MediaItems: []json.RawMessage{
					json.RawMessage(`{"path":"fire_1.jpg","type":"PHOTO"}`),
					json.RawMessage(`{"type":"PHOTO"}`),
					json.RawMessage(`not even json`),
					json.RawMessage(`{"path":"fire_2.jpg","type":"PHOTO"}`),
				},
			},
		},
	}

	teamId, err := e.Submit(doc)
	require.NoError(t, err)

	read, err := e.GetTeamDocument(teamId)
	require.NoError(t, err)
	stage := read.ProcessRecord.Stages["FIRE_MAKING"]
	assert.ElementsMatch(t, []string{"fire_1.jpg", "fire_2.jpg"}, mediaPaths(t, stage.MediaItems))
}

func TestStagesReturnInFixedOrder(t *testing.T) {
	e := setupEngine(t)

	doc := testDoc("1号炉")
	doc.ProcessRecord = &wire.ProcessRecord{
		StartTime: 1000,
		Stages: map[string]wire.Stage{
			"CLEANING":    {Stage: "CLEANING"},
			"PREPARATION": {Stage: "PREPARATION"},
			"SHOWCASE":    {Stage: "SHOWCASE"},
			"FIRE_MAKING": {Stage: "FIRE_MAKING"},
		},
	}

	_, err := e.Submit(doc)
	require.NoError(t, err)

	var rec schema.ProcessRecord
	require.NoError(t, e.db.First(&rec).Error)

	stages, err := e.loadStages(rec.Id)
	require.NoError(t, err)

	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		names = append(names, stage.StageName)
	}
	assert.Equal(t, []string{"PREPARATION", "FIRE_MAKING", "SHOWCASE", "CLEANING"}, names)
}

func TestGetTeamDocumentNotFound(t *testing.T) {
	e := setupEngine(t)

	_, err := e.GetTeamDocument("不存在_一_一_一")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrTeamNotFound))
}

func TestEvaluationLifecycle(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(fullDoc("5号炉"))
	require.NoError(t, err)

	evaluations, err := e.GetEvaluation(teamId)
	require.NoError(t, err)
	assert.Empty(t, evaluations)

	stages := map[string]wire.StageEvaluation{
		"PREPARATION": {
			Stage:           "PREPARATION",
			PositiveTags:    []string{"分工明确"},
			ImprovementTags: []string{"再快一点"},
			OtherComment:    "开局不错",
		},
	}
	require.NoError(t, e.SaveEvaluation(teamId, "", stages))

	evaluations, err = e.GetEvaluation(teamId)
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.Equal(t, stages["PREPARATION"], evaluations["PREPARATION"])

	// The display-name lookup defaults to the derived name when none is sent.
	var lookup schema.TeacherEvaluationTeam
	require.NoError(t, e.db.First(&lookup, "team_id = ?", teamId).Error)
	assert.Equal(t, "实验小学 五年级 二班 炉号5号炉", lookup.TeamName)

	// A resave replaces the stage map instead of accumulating rows.
	require.NoError(t, e.SaveEvaluation(teamId, "自定义名", map[string]wire.StageEvaluation{
		"CLEANING": {Stage: "CLEANING", PositiveTags: []string{"收尾干净"}},
	}))

	evaluations, err = e.GetEvaluation(teamId)
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.Contains(t, evaluations, "CLEANING")

	assert.EqualValues(t, 1, count(t, e, &schema.TeacherEvaluationV2{}, ""))

	require.NoError(t, e.db.First(&lookup, "team_id = ?", teamId).Error)
	assert.Equal(t, "自定义名", lookup.TeamName)
}

func TestSaveEvaluationUnknownTeam(t *testing.T) {
	e := setupEngine(t)

	err := e.SaveEvaluation("没有_这_个_队", "", map[string]wire.StageEvaluation{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrTeamNotFound))
}

func TestLegacyEvaluationTranslated(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(testDoc("6号炉"))
	require.NoError(t, err)

	legacy := []schema.TeacherEvaluation{
		{
			TeamId:       teamId,
			StageName:    "PREPARATION",
			Rating:       4,
			Comment:      "准备充分",
			Strengths:    "团结，高效, 快",
			Improvements: "注意安全",
			Timestamp:    1000,
			CreatedAt:    1000,
			UpdatedAt:    1000,
		},
		{
			TeamId:    teamId,
			StageName: "COOKING_RICE",
			Comment:   "火候不稳",
			Timestamp: 1000,
			CreatedAt: 1000,
			UpdatedAt: 1000,
		},
	}
	for i := range legacy {
		require.NoError(t, e.db.Create(&legacy[i]).Error)
	}

	evaluations, err := e.GetEvaluation(teamId)
	require.NoError(t, err)
	require.Len(t, evaluations, 2)

	prep := evaluations["PREPARATION"]
	assert.Equal(t, []string{"团结", "高效", "快"}, prep.PositiveTags)
	assert.Equal(t, []string{"注意安全"}, prep.ImprovementTags)
	assert.Equal(t, "准备充分", prep.OtherComment)

	rice := evaluations["COOKING_RICE"]
	assert.Empty(t, rice.PositiveTags)
	assert.Equal(t, "火候不稳", rice.OtherComment)

	// A generation-2 write supersedes the legacy rows entirely.
	require.NoError(t, e.SaveEvaluation(teamId, "", map[string]wire.StageEvaluation{
		"SHOWCASE": {Stage: "SHOWCASE", OtherComment: "摆盘好看"},
	}))

	evaluations, err = e.GetEvaluation(teamId)
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.Contains(t, evaluations, "SHOWCASE")
}

func TestListTeamsSortedByStation(t *testing.T) {
	e := setupEngine(t)

	for _, stove := range []string{"12号炉", "3号炉", "1号炉", "流动炉"} {
		_, err := e.Submit(testDoc(stove))
		require.NoError(t, err)
	}

	teams, err := e.ListTeams()
	require.NoError(t, err)
	require.Len(t, teams, 4)

	stoves := make([]string, 0, len(teams))
	for _, team := range teams {
		stoves = append(stoves, team.StoveNumber)
	}
	assert.Equal(t, []string{"1号炉", "3号炉", "12号炉", "流动炉"}, stoves)
}

func TestListTeamsSummaryFields(t *testing.T) {
	e := setupEngine(t)

	_, err := e.Submit(fullDoc("3号炉"))
	require.NoError(t, err)

	teams, err := e.ListTeams()
	require.NoError(t, err)
	require.Len(t, teams, 1)

	team := teams[0]
	assert.Equal(t, "实验小学 五年级 二班 炉号3号炉", team.TeamName)
	assert.True(t, team.HasProcessRecord)
	assert.True(t, team.HasSummary)
	assert.Equal(t, "COOKING_RICE", team.CurrentStage)
	assert.Equal(t, 1, team.CompletedStages)
	assert.Equal(t, 2, team.TotalStages)
	assert.Equal(t, 4, team.StageRatings["PREPARATION"])
	assert.True(t, team.StageCompletion["PREPARATION"])
	assert.False(t, team.StageCompletion["COOKING_RICE"])
}

func TestListEvaluableTeamsPagination(t *testing.T) {
	e := setupEngine(t)

	for i := 1; i <= 12; i++ {
		_, err := e.Submit(testDoc(fmt.Sprintf("%v号炉", i)))
		require.NoError(t, err)
	}

	teams, pagination, err := e.ListEvaluableTeams(1, 5)
	require.NoError(t, err)
	assert.Len(t, teams, 5)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.Equal(t, 12, pagination.TotalCount)
	assert.True(t, pagination.HasNext)
	assert.False(t, pagination.HasPrev)
	assert.Equal(t, "1号炉", teams[0].StoveNumber)

	teams, pagination, err = e.ListEvaluableTeams(3, 5)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
	assert.False(t, pagination.HasNext)
	assert.True(t, pagination.HasPrev)
	assert.Equal(t, "12号炉", teams[1].StoveNumber)

	// Out-of-range pages clamp instead of erroring.
	teams, pagination, err = e.ListEvaluableTeams(99, 5)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
	assert.Equal(t, 3, pagination.CurrentPage)

	_, pagination, err = e.ListEvaluableTeams(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.CurrentPage)
	assert.Equal(t, 1, pagination.PageSize)
}

func TestEvaluableTeamUsesLookupName(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(testDoc("3号炉"))
	require.NoError(t, err)

	require.NoError(t, e.SaveEvaluation(teamId, "雄鹰小队", map[string]wire.StageEvaluation{
		"PREPARATION": {Stage: "PREPARATION"},
	}))

	teams, _, err := e.ListEvaluableTeams(1, 10)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "雄鹰小队", teams[0].TeamName)
	assert.True(t, teams[0].HasEvaluation)
}

func TestStatistics(t *testing.T) {
	e := setupEngine(t)

	_, err := e.Submit(fullDoc("1号炉"))
	require.NoError(t, err)
	_, err = e.Submit(testDoc("2号炉"))
	require.NoError(t, err)

	stats, err := e.GetStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalTeams)
	assert.EqualValues(t, 1, stats.TeamsWithProcess)
	assert.EqualValues(t, 1, stats.TeamsWithSummary)
	assert.EqualValues(t, 1, stats.TotalCompletedStages)
	assert.EqualValues(t, 2, stats.TotalStages)
	assert.InDelta(t, 50.0, stats.AverageCompletion, 0.001)
}

func TestClearAll(t *testing.T) {
	e := setupEngine(t)

	teamId, err := e.Submit(fullDoc("1号炉"))
	require.NoError(t, err)
	require.NoError(t, e.SaveEvaluation(teamId, "", map[string]wire.StageEvaluation{
		"PREPARATION": {Stage: "PREPARATION"},
	}))

	deleted, err := e.ClearAll()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted["teams"])
	assert.EqualValues(t, 2, deleted["stage_records"])

	total, err := e.TeamCount()
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	assert.EqualValues(t, 0, count(t, e, &schema.MediaItem{}, ""))
	assert.EqualValues(t, 0, count(t, e, &schema.TeacherEvaluationV2{}, ""))
}

func TestConcurrentSubmissions(t *testing.T) {
	e := setupEngine(t)

	const workers = 8

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc := fullDoc("1号炉")
			doc.TeamInfo.MemberNames = fmt.Sprintf("submission_%v", n)
			_, errs[n] = e.Submit(doc)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	assert.EqualValues(t, 1, count(t, e, &schema.Team{}, ""))
	assert.EqualValues(t, 1, count(t, e, &schema.ProcessRecord{}, ""))
	assert.EqualValues(t, 2, count(t, e, &schema.StageRecord{}, ""))
}
