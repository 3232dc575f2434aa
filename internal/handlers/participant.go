package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/services"
)

// ==================== Public Pages ====================

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.templates.Index.Execute(w, PageData{Title: models.DefaultPoolName})
}

// handleParticipantPage serves a participant's personal page
func (h *Handlers) handleParticipantPage(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		respondError(w, BadRequest("Invalid access code"))
		return
	}

	h.templates.Participant.Execute(w, PageData{Title: models.DefaultPoolName, AccessCode: code})
}

// ==================== Grid and Game ====================

func (h *Handlers) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	squares, err := h.Grid.ListSquares(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := GridResponse{Squares: squares}
	launched, err := h.Settings.IsLaunched(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	if launched {
		a, err := h.Grid.Assignment(ctx)
		if err != nil {
			respondError(w, err)
			return
		}
		resp.Launched = true
		resp.Numbers = a
	}
	respondOK(w, resp)
}

func (h *Handlers) handleGetGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.Game.GetState(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	leader, err := h.Game.CurrentLeader(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	winners, err := h.Game.Winners(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, GameResponse{State: state, Leader: leader, Winners: winners})
}

func (h *Handlers) handleGetWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := h.Game.Winners(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, winners)
}

// ==================== Participants ====================

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	// Registration is trimmed and validated by the service
	var req services.Registration
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	p, err := h.Participants.Register(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, p)
}

func (h *Handlers) handleGetParticipantView(w http.ResponseWriter, r *http.Request) {
	view, err := h.Participants.View(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

// ==================== Squares ====================

func (h *Handlers) handleClaimSquares(w http.ResponseWriter, r *http.Request) {
	var req services.ClaimRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Grid.ClaimSquares(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleReleaseSquares(w http.ResponseWriter, r *http.Request) {
	var req ReleaseRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	n, err := h.Grid.ReleaseSquares(r.Context(), req.AccessCode, req.Cells)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ReleaseResponse{Released: n})
}

// ==================== Props ====================

// handleGetPublicProps lists every prop except drafts
func (h *Handlers) handleGetPublicProps(w http.ResponseWriter, r *http.Request) {
	props, err := h.Props.ListProps(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	visible := make([]models.PropBet, 0, len(props))
	for _, p := range props {
		if p.Status != models.PropDraft {
			visible = append(visible, p)
		}
	}
	respondOK(w, visible)
}

func (h *Handlers) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req AnswerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, err)
		return
	}

	answer, err := h.Props.SubmitAnswer(r.Context(), req.AccessCode, id, req.Answer)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, answer)
}

func (h *Handlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Props.Leaderboard(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, board)
}

// ==================== Payments ====================

// handlePaymentWebhook applies a signed payment notification. The raw body is
// read in full because the signature covers its exact bytes.
func (h *Handlers) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, BadRequest("Could not read request body"))
		return
	}

	result, err := h.Payments.HandleWebhook(r.Context(), body, r.Header.Get(services.SignatureHeader))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}
