// Package handler implements the statement import HTTP handler.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authhandler "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/auth/handler"
	importservice "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/import/service"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/httputil"
)

// maxUploadBytes caps statement uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// ImportHandler handles statement upload requests.
type ImportHandler struct {
	svc    *importservice.ImportService
	logger *slog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *importservice.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

// Routes returns the import route tree.
func (h *ImportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/statement", h.UploadStatement)
	return r
}

// UploadStatement accepts a multipart CSV or XLSX bank statement and
// responds with the import summary.
func (h *ImportHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	summary, err := h.svc.ImportStatement(r.Context(), userID, header.Filename, file)
	if err != nil {
		if errors.Is(err, importservice.ErrUnsupportedFile) || errors.Is(err, importservice.ErrUnreadableFile) {
			httputil.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("statement import failed", slog.Any("error", err))
		httputil.Error(w, http.StatusInternalServerError, "failed to import statement")
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

func (h *ImportHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := authhandler.UserIDFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}
