// Package handlers implements the JSON API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyowon/folio/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondStoreError maps store sentinel errors to HTTP statuses
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrPortfolioNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPortfolioExists), errors.Is(err, store.ErrLastPortfolio):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrInvalidTag),
		errors.Is(err, store.ErrUnknownSymbol):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
