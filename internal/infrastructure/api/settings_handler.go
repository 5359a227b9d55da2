package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gaint-shopify-connector/internal/application"
	"gaint-shopify-connector/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SettingsHandler serves the settings view and the actions taken on it
type SettingsHandler struct {
	sessions *application.SessionManager
	channels *application.ChannelService
	logger   zerolog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(sessions *application.SessionManager, channels *application.ChannelService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		sessions: sessions,
		channels: channels,
		logger:   logger,
	}
}

type actionResponse struct {
	application.ActionResult
	Error string `json:"error,omitempty"`
}

type validateRequest struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

type toggleRequest struct {
	Value domain.ToggleState `json:"value"`
}

type validationAttemptResponse struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// orchestrator resumes the session named by the request
func (h *SettingsHandler) orchestrator(w http.ResponseWriter, r *http.Request) (*application.Orchestrator, bool) {
	admin, ok := domain.AdminSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return nil, false
	}
	if admin.ID == "" {
		writeError(w, http.StatusUnauthorized, "session id required")
		return nil, false
	}
	orch, err := h.sessions.Resume(r.Context(), admin)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionEnded) {
			h.logger.Error().Err(err).Str("sessionId", admin.ID).Msg("Failed to resume session")
		}
		writeError(w, statusFor(err), messageFor(err))
		return nil, false
	}
	return orch, true
}

// pageSession returns the session for a page load: the named session while it is
// live, otherwise a fresh one.
func (h *SettingsHandler) pageSession(w http.ResponseWriter, r *http.Request) (*application.Orchestrator, bool) {
	admin, ok := domain.AdminSessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return nil, false
	}
	if admin.ID != "" {
		orch, err := h.sessions.Resume(r.Context(), admin)
		if err == nil {
			return orch, true
		}
		if !errors.Is(err, domain.ErrSessionEnded) {
			h.logger.Warn().Err(err).Str("sessionId", admin.ID).Msg("Failed to resume session, starting a new one")
		}
	}
	orch, err := h.sessions.Start(r.Context(), admin)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", admin.Shop).Msg("Failed to start session")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return orch, true
}

func (h *SettingsHandler) writeAction(w http.ResponseWriter, result application.ActionResult, err error) {
	resp := actionResponse{ActionResult: result}
	if err != nil {
		resp.Error = messageFor(err)
	}
	writeJSON(w, statusFor(err), resp)
}

// GetSettings godoc
//
//	@Summary		Open the settings view
//	@Description	Without X-Session-ID a new session is started; its id is returned as session_id.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	domain.SettingsView
//	@Router			/api/v1/settings [get]
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.pageSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Init(r.Context()))
}

// ValidateChannel godoc
//
//	@Summary	Validate the channel with Gaint Logistics
//	@Tags		settings
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	actionResponse
//	@Failure	409	{object}	actionResponse
//	@Router		/api/v1/settings/validate [post]
func (h *SettingsHandler) ValidateChannel(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	result, err := orch.ValidateChannel(r.Context(), req.ChannelID, req.ChannelName)
	h.writeAction(w, result, err)
}

// SetToggle godoc
//
//	@Summary	Change one sync toggle
//	@Tags		settings
//	@Accept		json
//	@Produce	json
//	@Param		field	path	string	true	"appStatus, orderSync, pullOrderStatus or cancelOrderSync"
//	@Success	200	{object}	actionResponse
//	@Failure	400	{object}	actionResponse
//	@Failure	423	{object}	actionResponse
//	@Router		/api/v1/settings/toggles/{field} [put]
func (h *SettingsHandler) SetToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	field := domain.ToggleField(chi.URLParam(r, "field"))
	result, err := orch.SetToggle(field, req.Value)
	h.writeAction(w, result, err)
}

// TriggerOrderSync godoc
//
//	@Summary	Request an order sync
//	@Tags		settings
//	@Produce	json
//	@Success	200	{object}	actionResponse
//	@Router		/api/v1/settings/sync-orders [post]
func (h *SettingsHandler) TriggerOrderSync(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	result, err := orch.TriggerOrderSync()
	h.writeAction(w, result, err)
}

// CloseModal godoc
//
//	@Summary	Close the open modal
//	@Tags		settings
//	@Produce	json
//	@Success	200	{object}	actionResponse
//	@Router		/api/v1/settings/modal/close [post]
func (h *SettingsHandler) CloseModal(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	result, err := orch.CloseModal()
	h.writeAction(w, result, err)
}

// EndSession godoc
//
//	@Summary	End the admin session
//	@Tags		session
//	@Success	204
//	@Router		/api/v1/session [delete]
func (h *SettingsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	admin, _ := domain.AdminSessionFromContext(r.Context())
	if admin.ID == "" {
		writeError(w, http.StatusUnauthorized, "session id required")
		return
	}
	if orch, ok := h.sessions.Get(admin.ID); ok && orch.Session().Shop != admin.Shop {
		writeError(w, http.StatusGone, messageFor(domain.ErrSessionEnded))
		return
	}
	if err := h.sessions.End(r.Context(), admin.ID); err != nil {
		h.logger.Error().Err(err).Str("sessionId", admin.ID).Msg("Failed to end session")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrders godoc
//
//	@Summary	List recent orders
//	@Tags		orders
//	@Produce	json
//	@Param		limit	query	int	false	"page size (1-250, default 10)"
//	@Success	200	{array}		domain.OrderRecord
//	@Failure	502	{object}	errorResponse
//	@Router		/api/v1/orders [get]
func (h *SettingsHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	orders, err := orch.ListOrders(r.Context(), intQuery(r, "limit", domain.DefaultOrderLimit))
	if err != nil {
		writeError(w, statusFor(err), messageFor(err))
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListValidations godoc
//
//	@Summary	List recent channel validation attempts of the shop
//	@Tags		settings
//	@Produce	json
//	@Param		limit	query	int	false	"maximum entries (default 20)"
//	@Success	200	{array}	validationAttemptResponse
//	@Router		/api/v1/validations [get]
func (h *SettingsHandler) ListValidations(w http.ResponseWriter, r *http.Request) {
	admin, _ := domain.AdminSessionFromContext(r.Context())
	limit := intQuery(r, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	attempts, err := h.channels.History(r.Context(), admin.Shop, int64(limit))
	if err != nil {
		h.logger.Error().Err(err).Str("shop", admin.Shop).Msg("Failed to list validation attempts")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := make([]validationAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp = append(resp, validationAttemptResponse{
			ID:          a.ID,
			ChannelID:   a.ChannelID,
			ChannelName: a.ChannelName,
			Outcome:     string(a.Outcome),
			Message:     a.Message,
			DurationMS:  a.Duration.Milliseconds(),
			CreatedAt:   a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
