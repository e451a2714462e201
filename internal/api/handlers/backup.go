package handlers

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/pkg/logger"
)

// BackupHandler serves snapshot creation, download, and restore
type BackupHandler struct {
	manager   *backup.Manager
	maxUpload int64
	logger    *logger.Logger
}

// NewBackupHandler creates a backup handler
func NewBackupHandler(manager *backup.Manager, maxUpload int64, log *logger.Logger) *BackupHandler {
	return &BackupHandler{
		manager:   manager,
		maxUpload: maxUpload,
		logger:    log,
	}
}

// Create writes a new backup file from the current store state.
// POST /api/backup
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	path, err := h.manager.Create()
	if err != nil {
		h.logger.WithError(err).Error("Backup failed")
		respondError(w, http.StatusInternalServerError, "Backup failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"file": filepath.Base(path),
	})
}

// List returns the backup files, newest first.
// GET /api/backup
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.manager.List()
	if err != nil {
		h.logger.WithError(err).Error("Backup listing failed")
		respondError(w, http.StatusInternalServerError, "Backup listing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// Latest serves the newest backup file as a snapshot download.
// GET /api/backup/latest
func (h *BackupHandler) Latest(w http.ResponseWriter, r *http.Request) {
	path, ok, err := h.manager.Latest()
	if err != nil {
		h.logger.WithError(err).Error("Backup lookup failed")
		respondError(w, http.StatusInternalServerError, "Backup lookup failed")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "No backup available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, r, path)
}

// Restore replaces the store with an uploaded snapshot document. The
// upload is decoded in full before any state changes; a malformed
// document leaves the store untouched.
// POST /api/restore
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "Snapshot too large")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "Empty snapshot")
		return
	}
	if err := h.manager.RestoreData(body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid snapshot: "+err.Error())
		return
	}
	h.logger.Info("Store restored from uploaded snapshot")
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}
