// Package services exposes the persistence engine over HTTP for the field
// clients and the teacher dashboard.
package services

import (
	"log"
	"net/http"
	"os"
	"time"

	"campcooking/teacherserver/engine"
	"campcooking/teacherserver/storage"
	"campcooking/teacherserver/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type TeacherServer struct {
	submission SubmissionService
	evaluation EvaluationService
	media      MediaService
	admin      AdminService

	store *storage.DiskStorage
}

func NewTeacherServer(db *gorm.DB, store *storage.DiskStorage, adminSecret string) TeacherServer {
	eng := engine.New(db)

	return TeacherServer{
		submission: SubmissionService{engine: eng, store: store},
		evaluation: EvaluationService{engine: eng},
		media:      MediaService{store: store},
		admin: AdminService{
			engine:  eng,
			store:   store,
			secret:  adminSecret,
			started: time.Now(),
		},
		store: store,
	}
}

func (t *TeacherServer) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.With(checkSufficientStorage(t.store)).Post("/submit", t.submission.Submit)

	r.Get("/teams", t.submission.ListTeams)
	r.Route("/teams/{team_id}", func(r chi.Router) {
		r.Get("/", t.submission.GetTeam)

		r.Get("/evaluation", t.evaluation.GetEvaluation)
		r.Post("/evaluation", t.evaluation.SaveEvaluation)

		r.With(checkSufficientStorage(t.store)).Post("/media", t.media.Upload)
		r.Get("/media/{filename}", t.media.Download)
	})

	r.Get("/evaluation/teams", t.evaluation.ListEvaluableTeams)

	r.Get("/statistics", t.admin.Statistics)
	r.Get("/status", t.admin.Status)
	r.Get("/export", t.admin.Export)
	r.Post("/admin/clear", t.admin.Clear)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
