package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gaint-shopify-connector/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

// statusFor maps a domain error to the HTTP status of an action response. Errors that
// are already shown in the view's error fields are answered with 200.
func statusFor(err error) int {
	var locked *domain.GateLocked
	var upstream *domain.UpstreamDataError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &locked):
		return http.StatusLocked
	case errors.Is(err, domain.ErrInvalidToggle):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionEnded):
		return http.StatusGone
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}

	var userErr domain.UserError
	if errors.As(err, &userErr) {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// messageFor returns the text shown to the merchant for err
func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToggle):
		return err.Error()
	case errors.Is(err, domain.ErrSuperseded):
		return "A newer validation is in progress."
	case errors.Is(err, domain.ErrSessionEnded):
		return "Session has ended."
	}
	return domain.UserMessageOf(err, "Internal server error")
}

func intQuery(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
