package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/services"
)

// ==================== Admin Pages ====================

func (h *Handlers) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Admin Dashboard",
		PageTitle: "Admin Dashboard",
		ActiveNav: "dashboard",
	}
	h.templates.AdminDashboard.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminGrid(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Manage Grid",
		PageTitle: "Manage Grid",
		ActiveNav: "grid",
	}
	h.templates.AdminGrid.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminGame(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Game Control",
		PageTitle: "Game Control",
		ActiveNav: "game",
	}
	h.templates.AdminGame.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminProps(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Prop Bets",
		PageTitle: "Prop Bets",
		ActiveNav: "props",
	}
	h.templates.AdminProps.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminParticipants(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Participants",
		PageTitle: "Participants",
		ActiveNav: "participants",
	}
	h.templates.AdminParticipants.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Pool Settings",
		PageTitle: "Pool Settings",
		ActiveNav: "settings",
	}
	h.templates.AdminSettings.ExecuteTemplate(w, "admin", data)
}

// ==================== Pool ====================

func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Grid.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Get(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req services.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	settings, err := h.Settings.Update(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleResetPool(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Settings.ResetPool(r.Context(), req.Parts)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) loggingStatus() LogLevelResponse {
	return LogLevelResponse{
		Level:       strings.ToLower(h.Log.GetLevel().String()),
		HTTPLogging: h.Log.IsHTTPLoggingEnabled(),
	}
}

func (h *Handlers) handleGetLogging(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.loggingStatus())
}

// handleSetLogging changes the log level and HTTP access logging at runtime
func (h *Handlers) handleSetLogging(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.Level != "" {
		h.Log.SetLevel(logger.ParseLevel(req.Level))
	}
	if req.HTTPLogging != nil {
		if *req.HTTPLogging {
			h.Log.EnableHTTPLogging()
		} else {
			h.Log.DisableHTTPLogging()
		}
	}
	status := h.loggingStatus()
	h.Log.Info("Logging changed", "level", status.Level, "http_logging", status.HTTPLogging)
	respondOK(w, status)
}

// ==================== Participants ====================

func (h *Handlers) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	list, err := h.Participants.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handlers) handleUpdateParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req services.Registration
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := h.Participants.Update(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, p)
}

func (h *Handlers) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Participants.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleGetParticipantQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Participants.QRImage(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondPNG(w, png)
}

func (h *Handlers) handleGetInviteQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Participants.InviteQRImage(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondPNG(w, png)
}

// ==================== Grid ====================

func (h *Handlers) handleSetSquare(w http.ResponseWriter, r *http.Request) {
	var req services.AdminSquareUpdate
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	sq, err := h.Grid.SetSquare(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, sq)
}

func (h *Handlers) handleConfirmSquares(w http.ResponseWriter, r *http.Request) {
	var req CellsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	n, err := h.Grid.ConfirmSquares(r.Context(), req.Cells)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ConfirmResponse{Confirmed: n})
}

func (h *Handlers) handleSweepReservations(w http.ResponseWriter, r *http.Request) {
	released, err := h.Grid.SweepReservations(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if released == nil {
		released = []models.Cell{}
	}
	respondOK(w, SweepResponse{Released: released})
}

func (h *Handlers) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var req LaunchRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	result, err := h.Grid.Launch(r.Context(), req.Force)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

// ==================== Game ====================

func (h *Handlers) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var req services.GameUpdate
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	state, err := h.Game.UpdateGame(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, state)
}

func (h *Handlers) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	state, err := h.Game.StartGame(r.Context(), req.Version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, state)
}

func (h *Handlers) handleResumeGame(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	state, err := h.Game.ResumeGame(r.Context(), req.Version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, state)
}

func (h *Handlers) handleEndQuarter(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Game.EndQuarter(r.Context(), req.Version)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleSyncScore(w http.ResponseWriter, r *http.Request) {
	result, err := h.ScoreSync.SyncOnce(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

// ==================== Props ====================

func (h *Handlers) handleGetProps(w http.ResponseWriter, r *http.Request) {
	props, err := h.Props.ListProps(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, props)
}

func (h *Handlers) handleCreateProp(w http.ResponseWriter, r *http.Request) {
	var req services.PropInput
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := h.Props.CreateProp(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, p)
}

func (h *Handlers) handleUpdateProp(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req services.PropInput
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := h.Props.UpdateProp(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, p)
}

func (h *Handlers) handleDeleteProp(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Props.DeleteProp(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleSetPropStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req PropStatusRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := h.Props.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, p)
}

func (h *Handlers) handleGetPropAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	answers, err := h.Props.Answers(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, answers)
}

func (h *Handlers) handleGradeProp(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var key pool.GradingKey
	if err := decodeJSON(r, &key); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Props.GradeProp(r.Context(), id, key)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

// ==================== Payments and Notifications ====================

func (h *Handlers) handleGetPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Payments.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, payments)
}

func (h *Handlers) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req services.ManualPayment
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Payments.RecordManual(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, result)
}

func (h *Handlers) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, BadRequest("Invalid limit parameter"))
			return
		}
		limit = n
	}

	list, err := h.Notifications.List(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, list)
}
