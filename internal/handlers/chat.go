// Package handlers exposes the web chat channel over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"bankchat/internal/bank"
	"bankchat/internal/cache"
	"bankchat/internal/convo"
	"bankchat/internal/metrics"
	"bankchat/internal/repo"
)

// Chat serves POST /channels/web/chat. Session state lives in process memory
// keyed by session id; the conversation log and account snapshots come from
// the store on every turn.
type Chat struct {
	store        repo.Store
	cache        *cache.Redis
	engine       *convo.Engine
	metrics      *metrics.Metrics
	logger       *slog.Logger
	historyLimit int
	lockTTL      time.Duration

	mu     sync.Mutex
	states map[string]*bank.SessionState
}

func NewChat(store repo.Store, c *cache.Redis, engine *convo.Engine, m *metrics.Metrics, logger *slog.Logger, historyLimit int, lockTTL time.Duration) *Chat {
	return &Chat{
		store:        store,
		cache:        c,
		engine:       engine,
		metrics:      m,
		logger:       logger.With("component", "handlers.chat"),
		historyLimit: historyLimit,
		lockTTL:      lockTTL,
		states:       make(map[string]*bank.SessionState),
	}
}

func (h *Chat) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /channels/web/chat", h.handleChat)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatMessage struct {
	Sender  bank.Sender `json:"sender"`
	Content string      `json:"content"`
}

type chatResponse struct {
	Messages            []chatMessage        `json:"messages"`
	Message             string               `json:"message"`
	Intent              *bank.Intent         `json:"transaction_intent,omitempty"`
	FlowSteps           []bank.FlowStep      `json:"flow_steps"`
	ClarificationNeeded bool                 `json:"clarification_needed,omitempty"`
	Options             []bank.AccountOption `json:"options,omitempty"`
	MissingFields       []string             `json:"missing_fields,omitempty"`
	Error               string               `json:"error,omitempty"`
}

func (h *Chat) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.NewString()
	logger := h.logger.With("request_id", requestID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		h.fail(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	release, ok := h.cache.AcquireSessionLock(ctx, req.SessionID, h.lockTTL)
	if !ok {
		h.fail(w, http.StatusConflict, "another request for this session is in progress")
		return
	}
	defer release()

	customerID, err := h.store.CustomerForSession(ctx, req.SessionID)
	if errors.Is(err, repo.ErrSessionNotFound) {
		h.fail(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		logger.Error("session lookup failed", "session_id", req.SessionID, "error", err)
		h.metrics.Errors.WithLabelValues("session_lookup").Inc()
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	accounts, err := h.store.Accounts(ctx, customerID)
	if err != nil {
		logger.Error("account fetch failed", "customer_id", customerID, "error", err)
		h.metrics.Errors.WithLabelValues("account_fetch").Inc()
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	history, err := h.store.RecentTurns(ctx, req.SessionID, h.historyLimit)
	if err != nil {
		logger.Error("history fetch failed", "session_id", req.SessionID, "error", err)
		h.metrics.Errors.WithLabelValues("history_fetch").Inc()
		h.fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	userTurn := bank.ConversationTurn{Sender: bank.SenderUser, Content: req.Message, Timestamp: time.Now().UTC()}
	if err := h.store.AppendTurn(ctx, req.SessionID, userTurn); err != nil {
		logger.Warn("persist user turn failed", "session_id", req.SessionID, "error", err)
		h.metrics.Errors.WithLabelValues("persist_turn").Inc()
	}

	state := h.stateFor(req.SessionID)
	result := h.engine.ProcessConversation(ctx, convo.Request{
		Message:  req.Message,
		History:  history,
		Accounts: accounts,
		State:    state,
	})

	// The unavailability notice comes from the system, not the assistant.
	replySender := bank.SenderAssistant
	if result.Error == bank.ErrCodeLLMUnavailable {
		replySender = bank.SenderSystem
	}
	replyTurn := bank.ConversationTurn{Sender: replySender, Content: result.Message, Timestamp: time.Now().UTC()}
	if err := h.store.AppendTurn(ctx, req.SessionID, replyTurn); err != nil {
		logger.Warn("persist reply turn failed", "session_id", req.SessionID, "error", err)
		h.metrics.Errors.WithLabelValues("persist_turn").Inc()
	}

	h.metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	h.writeJSON(w, http.StatusOK, chatResponse{
		Messages: []chatMessage{
			{Sender: userTurn.Sender, Content: userTurn.Content},
			{Sender: replyTurn.Sender, Content: replyTurn.Content},
		},
		Message:             result.Message,
		Intent:              result.Intent,
		FlowSteps:           result.FlowSteps,
		ClarificationNeeded: result.ClarificationNeeded,
		Options:             result.Options,
		MissingFields:       result.MissingFields,
		Error:               result.Error,
	})
}

func (h *Chat) stateFor(sessionID string) *bank.SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.states[sessionID]
	if !ok {
		state = &bank.SessionState{}
		h.states[sessionID] = state
	}
	return state
}

func (h *Chat) fail(w http.ResponseWriter, status int, msg string) {
	h.metrics.ChatRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Chat) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}
