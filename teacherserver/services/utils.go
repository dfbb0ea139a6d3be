package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"campcooking/teacherserver/engine"
	"campcooking/teacherserver/schema"
	"campcooking/teacherserver/storage"
	"campcooking/teacherserver/wire"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// asCoded attaches a response code to errors coming out of the persistence
// engine. Errors already carrying a code pass through unchanged.
func asCoded(err error) error {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return err
	}

	var verr *wire.ValidationError
	switch {
	case errors.As(err, &verr):
		return CodedError(err, http.StatusBadRequest)
	case errors.Is(err, engine.ErrContention):
		return CodedError(err, http.StatusServiceUnavailable)
	case errors.Is(err, schema.ErrTeamNotFound):
		return CodedError(err, http.StatusNotFound)
	case errors.Is(err, storage.ErrBadFilename):
		return CodedError(err, http.StatusBadRequest)
	default:
		return CodedError(err, http.StatusInternalServerError)
	}
}

func checkDiskUsage(store *storage.DiskStorage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 10% of the disk needs to be free or 2Gb, whichever is smaller.
	threshold := min(stats.TotalBytes/10, 2*1024*oneMib)
	if stats.FreeBytes < threshold {
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available, usage: %d/%d Mib", used, total), http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(store *storage.DiskStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(store); err != nil {
				slog.Error(err.Error())
				http.Error(w, err.Error(), GetResponseCode(err))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}
