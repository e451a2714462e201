package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/internal/transfer"
	"github.com/hyowon/folio/pkg/logger"
)

// TransferHandler serves holdings import and export
type TransferHandler struct {
	store     *store.Store
	maxUpload int64
	logger    *logger.Logger
}

// NewTransferHandler creates a transfer handler
func NewTransferHandler(st *store.Store, maxUpload int64, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		store:     st,
		maxUpload: maxUpload,
		logger:    log,
	}
}

// ImportCSV replaces one portfolio's holdings from an uploaded CSV. The
// file is parsed in full before anything is committed.
// POST /api/import/csv  (multipart, field "file", query ?portfolio=)
func (h *TransferHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	h.importOne(w, r, false)
}

// ImportXLSX is ImportCSV for spreadsheets.
// POST /api/import/xlsx
func (h *TransferHandler) ImportXLSX(w http.ResponseWriter, r *http.Request) {
	h.importOne(w, r, true)
}

func (h *TransferHandler) importOne(w http.ResponseWriter, r *http.Request, xlsx bool) {
	file, _, ok := h.uploadedFile(w, r, "file")
	if !ok {
		return
	}
	defer file.Close()

	var holdings transfer.Holdings
	var err error
	if xlsx {
		holdings, err = transfer.ImportXLSX(file, time.Now())
	} else {
		holdings, err = transfer.ImportCSV(file, time.Now())
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := h.store.ReplaceHoldings(r.URL.Query().Get("portfolio"), holdings.Positions, holdings.Transactions)
	h.logger.WithFields(map[string]interface{}{
		"portfolio": name,
		"symbols":   len(holdings.Positions),
	}).Info("Holdings imported")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"symbols":   len(holdings.Positions),
	})
}

// ImportBulk imports several files at once, one portfolio per file named
// after the file's base name. Files that fail to parse are skipped and
// reported; the batch continues.
// POST /api/import/csv/bulk  (multipart, repeated field "files")
func (h *TransferHandler) ImportBulk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}
	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		respondError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	now := time.Now()
	imported := make([]string, 0, len(uploads))
	var skipped []string

	for _, header := range uploads {
		name := portfolioNameFor(header.Filename)
		holdings, err := h.parseUpload(header, now)
		if err != nil {
			h.logger.WithError(err).WithField("file", header.Filename).
				Warn("Bulk import skipped file")
			skipped = append(skipped, header.Filename)
			continue
		}
		h.store.ReplaceHoldings(name, holdings.Positions, holdings.Transactions)
		imported = append(imported, name)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"imported": imported,
		"skipped":  skipped,
	})
}

func (h *TransferHandler) parseUpload(header *multipart.FileHeader, now time.Time) (transfer.Holdings, error) {
	file, err := header.Open()
	if err != nil {
		return transfer.Holdings{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		return transfer.ImportXLSX(file, now)
	}
	return transfer.ImportCSV(file, now)
}

// ExportCSV downloads the resolved portfolio's current holdings.
// GET /api/export/csv?portfolio=X
func (h *TransferHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	name, pf, ok := h.resolved(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".csv")
	if err := transfer.ExportCSV(w, pf, time.Now()); err != nil {
		h.logger.WithError(err).Error("CSV export failed")
	}
}

// ExportXLSX downloads the resolved portfolio's current holdings as a
// spreadsheet.
// GET /api/export/xlsx?portfolio=X
func (h *TransferHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	name, pf, ok := h.resolved(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".xlsx")
	if err := transfer.ExportXLSX(w, pf, time.Now()); err != nil {
		h.logger.WithError(err).Error("XLSX export failed")
	}
}

func (h *TransferHandler) resolved(w http.ResponseWriter, r *http.Request) (string, *contracts.Portfolio, bool) {
	name := h.store.Resolve(r.URL.Query().Get("portfolio"))
	pf, ok := h.store.Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, "portfolio not found")
		return "", nil, false
	}
	return name, pf, true
}

func (h *TransferHandler) uploadedFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing uploaded file")
		return nil, nil, false
	}
	return file, header, true
}

// portfolioNameFor derives a portfolio name from an uploaded file name
func portfolioNameFor(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
