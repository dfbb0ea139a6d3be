package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"campcooking/teacherserver/storage"
	"campcooking/teacherserver/utils"

	"github.com/google/uuid"
)

const maxUploadBytes = 200 << 20

type MediaService struct {
	store *storage.DiskStorage
}

type uploadResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

func (s *MediaService) Upload(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParam(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("error parsing multipart form: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' field in multipart form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Client filenames collide across retries, a random prefix keeps every
	// upload addressable without overwriting earlier ones.
	name := fmt.Sprintf("%v_%v", uuid.New().String()[:8], filepath.Base(header.Filename))

	path, size, err := s.store.SaveMedia(teamId, name, file)
	if err != nil {
		err = asCoded(err)
		slog.Error("error saving media upload", "team_id", teamId, "filename", header.Filename, "error", err)
		http.Error(w, fmt.Sprintf("error saving media file: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("media file saved", "team_id", teamId, "path", path, "size", size)
	utils.WriteJsonResponse(w, uploadResponse{Path: path, Size: size})
}

func (s *MediaService) Download(w http.ResponseWriter, r *http.Request) {
	teamId, err := utils.URLParam(r, "team_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filename, err := utils.URLParam(r, "filename")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, err := s.store.OpenMedia(teamId, filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, fmt.Sprintf("media file %v not found", filename), http.StatusNotFound)
			return
		}
		err = asCoded(err)
		http.Error(w, fmt.Sprintf("error opening media file: %v", err), GetResponseCode(err))
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)

	if _, err := io.Copy(w, file); err != nil {
		slog.Error("error streaming media file", "team_id", teamId, "filename", filename, "error", err)
	}
}
