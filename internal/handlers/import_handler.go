package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"voteflow-backend/internal/importer"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/storage"
	"voteflow-backend/pkg/utils"
)

// ImportArchive is the optional bucket behind the import flow.
type ImportArchive interface {
	ArchiveReport(ctx context.Context, sessionID string, pdf []byte) error
	Recent(ctx context.Context, limit int) ([]storage.Object, error)
}

type ImportHandler struct {
	Service  *importer.Service
	Archive  ImportArchive
	MaxBytes int64
}

func NewImportHandler(svc *importer.Service, archive ImportArchive, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = importer.MaxFileBytes
	}
	return &ImportHandler{Service: svc, Archive: archive, MaxBytes: maxBytes}
}

func (h *ImportHandler) importError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, importer.ErrSessionNotFound):
		utils.Error(w, http.StatusNotFound, "Import session not found")
	case errors.Is(err, importer.ErrNotCSV), errors.Is(err, importer.ErrFileTooLarge), errors.Is(err, importer.ErrNoValidRows):
		utils.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, importer.ErrWrongStep):
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.Error(w, http.StatusRequestTimeout, "Import interrupted")
	default:
		logger.For("import").WithError(err).Error("[Import] Unexpected error")
		utils.Error(w, http.StatusInternalServerError, "Import failed")
	}
}

// Start opens a session.
// POST /api/import/sessions
func (h *ImportHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess := h.Service.Start()
	utils.Success(w, http.StatusCreated, "", sess.Snapshot())
}

// Get returns the session's current step.
// GET /api/import/sessions/{id}
func (h *ImportHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Get(mux.Vars(r)["id"])
	if err != nil {
		h.importError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "", sess.Snapshot())
}

// Upload accepts a multipart "file" field.
// POST /api/import/sessions/{id}/upload
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.importError(w, importer.ErrFileTooLarge)
			return
		}
		utils.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		h.importError(w, importer.ErrFileTooLarge)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.MaxBytes+1))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	n, err := h.Service.Upload(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.importError(w, err)
		return
	}
	preview, err := h.Service.Preview(id)
	if err != nil {
		h.importError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, fmt.Sprintf("Successfully parsed %d members", n), preview)
}

// Preview returns the leading rows and the "+N more" count.
// GET /api/import/sessions/{id}/preview
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Preview(mux.Vars(r)["id"])
	if err != nil {
		h.importError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "", p)
}

// Confirm runs the import.
// POST /api/import/sessions/{id}/confirm
func (h *ImportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Confirm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.importError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, fmt.Sprintf("Successfully imported %d members", res.Success), res)
}

// Reset discards parsed data ("Cancel" and "Import Another File").
// POST /api/import/sessions/{id}/reset
func (h *ImportHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.Service.Reset(id); err != nil {
		h.importError(w, err)
		return
	}
	sess, err := h.Service.Get(id)
	if err != nil {
		h.importError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "", sess.Snapshot())
}

// Close drops the session.
// DELETE /api/import/sessions/{id}
func (h *ImportHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.Service.Close(mux.Vars(r)["id"])
	utils.Success(w, http.StatusOK, "", nil)
}

// Report downloads the result summary as PDF.
// GET /api/import/sessions/{id}/report
func (h *ImportHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.Service.Get(id)
	if err != nil {
		h.importError(w, err)
		return
	}
	res, err := sess.Result()
	if err != nil {
		h.importError(w, err)
		return
	}
	pdf, err := importer.Report(sess.Snapshot().FileName, res)
	if err != nil {
		logger.For("import").WithError(err).Error("[Import] Failed to render report")
		utils.Error(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	if h.Archive != nil {
		if err := h.Archive.ArchiveReport(r.Context(), id, pdf); err != nil {
			logger.For("import").WithError(err).Warn("[Import] Failed to archive report")
		}
	}
	utils.Attachment(w, "application/pdf", "import-report.pdf", pdf)
}

// Template downloads the sample CSV.
// GET /api/import/template
func (h *ImportHandler) Template(w http.ResponseWriter, r *http.Request) {
	b, err := importer.Template()
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to generate template")
		return
	}
	utils.Attachment(w, "text/csv", "members-template.csv", b)
}

// Archives lists recently archived uploads.
// GET /api/import/archives
func (h *ImportHandler) Archives(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		utils.Error(w, http.StatusNotFound, "Import archive is not configured")
		return
	}
	objs, err := h.Archive.Recent(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		utils.Error(w, http.StatusBadGateway, "Failed to list archive")
		return
	}
	utils.Success(w, http.StatusOK, "", objs)
}
