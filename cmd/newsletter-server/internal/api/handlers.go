// Package api provides HTTP handlers for the newsletter server.
//
// The API speaks JSON on the programmatic endpoints and HTML on the
// endpoints reached from email link clicks (confirm, unsubscribe via GET).
package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/coregx/newsletter"
	"github.com/coregx/newsletter/model"
)

// maxBodyBytes bounds request bodies. Webhook batches stay well under this.
const maxBodyBytes = 1 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	manager      *newsletter.LifecycleManager
	logger       newsletter.Logger
	baseURL      string
	webhookToken string
}

// NewHandler creates a new API handler. webhookToken may be empty to disable
// webhook authentication; baseURL feeds the back link on HTML pages.
func NewHandler(manager *newsletter.LifecycleManager, logger newsletter.Logger, baseURL, webhookToken string) *Handler {
	return &Handler{
		manager:      manager,
		logger:       logger,
		baseURL:      baseURL,
		webhookToken: webhookToken,
	}
}

// SubscribeRequest represents a subscribe or unsubscribe request body.
type SubscribeRequest struct {
	Email string `json:"email"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleSubscribe handles POST /api/v1/subscribe
//
// Accepts a JSON body {"email": ...} or a classic form post with an email
// field, so the endpoint works from both fetch() calls and plain HTML forms.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	email, ok := h.parseEmail(w, r)
	if !ok {
		return
	}

	result, err := h.manager.Subscribe(r.Context(), email)
	if err != nil {
		if newsletter.HasCode(err, newsletter.ErrCodeDelivery) {
			h.respondError(w, http.StatusBadGateway, "Could not send the confirmation email. Please try again.", newsletter.ErrCodeDelivery)
			return
		}
		h.logger.Errorf("Subscribe failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to subscribe", "SUBSCRIBE_ERROR")
		return
	}

	switch result.Outcome {
	case newsletter.OutcomeAlreadySubscribed:
		h.respondSuccess(w, http.StatusOK, nil, "You're already subscribed!")
	case newsletter.OutcomeSuppressed:
		h.respondError(w, http.StatusConflict, "This address can't receive our emails.", "SUPPRESSED")
	default:
		h.respondSuccess(w, http.StatusOK, nil, "Almost there! Check your inbox to confirm your subscription.")
	}
}

// HandleConfirm handles GET /api/v1/confirm?token=...
// Responses are HTML pages because the endpoint is reached from email links.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		h.respondHTML(w, http.StatusBadRequest, "Confirmation error",
			"Invalid confirmation link", "The confirmation token is missing.")
		return
	}

	result, err := h.manager.Confirm(r.Context(), token)
	if err != nil {
		h.logger.Errorf("Confirm failed: %v", err)
		h.respondHTML(w, http.StatusInternalServerError, "Error",
			"Something went wrong", "Please try subscribing again.")
		return
	}

	switch result.Outcome {
	case newsletter.OutcomeConfirmed:
		h.respondHTML(w, http.StatusOK, "Confirmed",
			"Subscription confirmed", "You're all set. Future newsletters will arrive in your inbox.")
	case newsletter.OutcomeExpiredToken:
		h.respondHTML(w, http.StatusBadRequest, "Confirmation expired",
			"Link expired", "This confirmation link has expired. Please subscribe again.")
	default:
		h.respondHTML(w, http.StatusBadRequest, "Confirmation error",
			"Link is invalid", "This confirmation link is invalid or already used.")
	}
}

// HandleUnsubscribe handles GET and POST /api/v1/unsubscribe
//
// A token query parameter selects the signed one-click path; otherwise the
// email parameter (query, form, or JSON body) drives a plain opt-out. GET
// requests come from email link clicks and get HTML; POST gets JSON.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	var result *newsletter.Result
	var err error

	if token := r.URL.Query().Get("token"); token != "" {
		result, err = h.manager.UnsubscribeByToken(r.Context(), token)
	} else {
		email := r.URL.Query().Get("email")
		if email == "" && r.Method == http.MethodPost {
			var ok bool
			email, ok = h.parseEmail(w, r)
			if !ok {
				return
			}
		}
		if email == "" {
			if r.Method == http.MethodGet {
				h.respondHTML(w, http.StatusBadRequest, "Unsubscribe",
					"Unsubscribe", "Email is required to unsubscribe.")
			} else {
				h.respondError(w, http.StatusBadRequest, "Email is required", newsletter.ErrCodeValidation)
			}
			return
		}
		result, err = h.manager.Unsubscribe(r.Context(), email)
	}

	if err != nil {
		h.logger.Errorf("Unsubscribe failed: %v", err)
		if r.Method == http.MethodGet {
			h.respondHTML(w, http.StatusInternalServerError, "Error",
				"Something went wrong", "Please try again later or contact us directly.")
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to unsubscribe", "UNSUBSCRIBE_ERROR")
		}
		return
	}

	if r.Method == http.MethodGet {
		h.renderUnsubscribePage(w, result.Outcome)
		return
	}

	switch result.Outcome {
	case newsletter.OutcomeUnsubscribed:
		h.respondSuccess(w, http.StatusOK, nil, "Successfully unsubscribed")
	case newsletter.OutcomeAlreadyUnsubscribed, newsletter.OutcomeNotSubscribed:
		h.respondSuccess(w, http.StatusOK, nil, "Email was not subscribed")
	case newsletter.OutcomeExpiredToken:
		h.respondError(w, http.StatusBadRequest, "Unsubscribe link expired", newsletter.ErrCodeTokenExpired)
	default:
		h.respondError(w, http.StatusBadRequest, "Invalid unsubscribe link", newsletter.ErrCodeTokenInvalid)
	}
}

func (h *Handler) renderUnsubscribePage(w http.ResponseWriter, outcome newsletter.Outcome) {
	switch outcome {
	case newsletter.OutcomeUnsubscribed:
		h.respondHTML(w, http.StatusOK, "Unsubscribed",
			"You've been unsubscribed", "You won't receive any more emails from us. We're sorry to see you go!")
	case newsletter.OutcomeAlreadyUnsubscribed, newsletter.OutcomeNotSubscribed:
		h.respondHTML(w, http.StatusOK, "Unsubscribed",
			"Already unsubscribed", "This email is not currently subscribed to our newsletter.")
	case newsletter.OutcomeExpiredToken:
		h.respondHTML(w, http.StatusBadRequest, "Unsubscribe expired",
			"Link expired", "This unsubscribe link has expired.")
	default:
		h.respondHTML(w, http.StatusBadRequest, "Unsubscribe error",
			"Link is invalid", "This unsubscribe link is invalid.")
	}
}

// HandlePostmarkWebhook handles POST /api/v1/webhooks/postmark
//
// When a webhook token is configured, the X-Postmark-Server-Token header
// must match it. The payload may be a single event object or an array.
func (h *Handler) HandlePostmarkWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	if h.webhookToken != "" {
		supplied := r.Header.Get("X-Postmark-Server-Token")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.webhookToken)) != 1 {
			h.respondError(w, http.StatusUnauthorized, "Unauthorized", newsletter.ErrCodeUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read body", "")
		return
	}

	events, skipped, err := newsletter.ExtractSuppressionEvents(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	applied, err := h.manager.ProcessSuppressions(r.Context(), events)
	if err != nil {
		h.logger.Errorf("Failed to process webhook: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to process webhook", "WEBHOOK_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]int{
		"applied": applied,
		"skipped": skipped,
	}, "")
}

// HandleListSubscribers handles GET /api/v1/subscribers?status=...
func (h *Handler) HandleListSubscribers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	status := model.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = model.StatusActive
	}

	subscribers, err := h.manager.ListSubscribers(r.Context(), status)
	if err != nil {
		if newsletter.HasCode(err, newsletter.ErrCodeValidation) {
			h.respondError(w, http.StatusBadRequest, "Unknown status", newsletter.ErrCodeValidation)
			return
		}
		h.logger.Errorf("Failed to list subscribers: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to list subscribers", "LIST_ERROR")
		return
	}
	if subscribers == nil {
		subscribers = []model.Subscriber{}
	}

	h.respondSuccess(w, http.StatusOK, subscribers, "")
}

// HandleStats handles GET /api/v1/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	stats, err := h.manager.Stats(r.Context())
	if err != nil {
		h.logger.Errorf("Failed to load stats: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to load stats", "STATS_ERROR")
		return
	}

	h.respondSuccess(w, http.StatusOK, stats, "")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// parseEmail extracts and validates the email from a JSON or form body.
// On failure it writes the error response and returns ok=false.
func (h *Handler) parseEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var email string

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var req SubscribeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
			return "", false
		}
		email = req.Email
	} else {
		if err := r.ParseForm(); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid form body", newsletter.ErrCodeValidation)
			return "", false
		}
		email = r.FormValue("email")
	}

	email = model.NormalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		h.respondError(w, http.StatusBadRequest, "A valid email is required", newsletter.ErrCodeValidation)
		return "", false
	}

	return email, true
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
