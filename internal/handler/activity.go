package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/eco-tracker/internal/apperror"
	"github.com/sakif/eco-tracker/internal/model"
	"github.com/sakif/eco-tracker/internal/service"
)

// ActivityHandler records scans, analyses, and reports, and serves the
// activity log and export snapshots.
//
// The record endpoints go through AccountService so every append gets the
// same treatment: quota check first, then the activity write, then the
// usage counters. A denied quota comes back as 429 before anything is
// stored.
type ActivityHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewActivityHandler(accounts *service.AccountService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{accounts: accounts, logger: logger}
}

// HandleRecordScan appends a food-waste scan.
//
// HTTP: POST /api/users/{id}/scans
// REQUEST BODY: {"foodType": "...", "weight": 1.2, "nutrients": {...}, "fertilizerPotential": 0.4, ...}
//
// Responds 201 with the stored record (ID and timestamp assigned). The
// scanned weight and fertilizer potential are folded into the usage
// counters, readable via the usage endpoint.
func (h *ActivityHandler) HandleRecordScan(w http.ResponseWriter, r *http.Request) {
	var scan model.Scan
	if err := json.NewDecoder(r.Body).Decode(&scan); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	stored, err := h.accounts.RecordScan(r.Context(), r.PathValue("id"), &scan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleRecordAnalysis appends a composting analysis.
//
// HTTP: POST /api/users/{id}/analyses
func (h *ActivityHandler) HandleRecordAnalysis(w http.ResponseWriter, r *http.Request) {
	var analysis model.Analysis
	if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	stored, err := h.accounts.RecordAnalysis(r.Context(), r.PathValue("id"), &analysis)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleRecordReport appends a waste-reduction report.
//
// HTTP: POST /api/users/{id}/reports
func (h *ActivityHandler) HandleRecordReport(w http.ResponseWriter, r *http.Request) {
	var report model.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	stored, err := h.accounts.RecordReport(r.Context(), r.PathValue("id"), &report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleActivity returns the user's full activity container: scans,
// analyses, reports, and app settings.
//
// HTTP: GET /api/users/{id}/activity
//
// The container is provisioned lazily on the first append, so a user who
// has never recorded anything gets a 404 here.
func (h *ActivityHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	data, err := h.accounts.Activity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleExport returns a full snapshot of the user's four records,
// suitable for backup and later import.
//
// HTTP: GET /api/users/{id}/export
func (h *ActivityHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	export, err := h.accounts.ExportUserData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user data exported", slog.String("userID", id))
	writeJSON(w, http.StatusOK, export)
}
