package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankchat/internal/bank"
	"bankchat/internal/convo"
	"bankchat/internal/llm"
	"bankchat/internal/metrics"
	"bankchat/internal/nlu"
	"bankchat/internal/repo"
)

// memStore is an in-memory Store with one fixed customer.
type memStore struct {
	accounts []bank.Account
	turns    map[string][]bank.ConversationTurn
}

func newMemStore() *memStore {
	return &memStore{
		accounts: []bank.Account{
			{ID: 1, Type: "CHECKING", CanonicalType: bank.AccountChecking, Balance: 2500, Currency: "USD", AccountName: "Everyday Checking"},
			{ID: 2, Type: "SAVINGS", CanonicalType: bank.AccountSavings, Balance: 10000, Currency: "USD", AccountName: "Rainy Day Savings"},
		},
		turns: make(map[string][]bank.ConversationTurn),
	}
}

func (s *memStore) CustomerForSession(_ context.Context, sessionID string) (int64, error) {
	if sessionID != "sess-1" {
		return 0, repo.ErrSessionNotFound
	}
	return 1, nil
}

func (s *memStore) Accounts(context.Context, int64) ([]bank.Account, error) {
	return s.accounts, nil
}

func (s *memStore) AppendTurn(_ context.Context, sessionID string, turn bank.ConversationTurn) error {
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	return nil
}

func (s *memStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]bank.ConversationTurn, error) {
	turns := s.turns[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (s *memStore) Close() {}

type scriptedGen struct {
	replies []string
	err     error
}

func (g *scriptedGen) Generate(context.Context, string, []llm.Tool) (*llm.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	reply := "I'm not sure what you mean."
	if len(g.replies) > 0 {
		reply = g.replies[0]
		g.replies = g.replies[1:]
	}
	return &llm.Response{Response: reply}, nil
}

func newTestHandler(store repo.Store, gen nlu.Generator) *Chat {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New("test", prometheus.NewRegistry())
	extractor := nlu.New(gen, m, logger)
	engine := convo.New(extractor, m, logger, rand.New(rand.NewSource(42)), nil)
	return NewChat(store, nil, engine, m, logger, 10, 30*time.Second)
}

func postChat(t *testing.T, h *Chat, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest(http.MethodPost, "/channels/web/chat", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestChatHappyPath(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store, &scriptedGen{replies: []string{
		`{"operation":"BALANCE_INQUIRY","account_id":2}`,
	}})

	rec := postChat(t, h, chatRequest{SessionID: "sess-1", Message: "savings balance"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, bank.SenderUser, resp.Messages[0].Sender)
	assert.Equal(t, "savings balance", resp.Messages[0].Content)
	assert.Equal(t, bank.SenderAssistant, resp.Messages[1].Sender)
	assert.Contains(t, resp.Message, "10000.00")
	require.Len(t, resp.FlowSteps, 1)
	assert.Equal(t, bank.StepBalanceDisplay, resp.FlowSteps[0].Step)

	// Both turns hit the log.
	turns := store.turns["sess-1"]
	require.Len(t, turns, 2)
	assert.Equal(t, bank.SenderUser, turns[0].Sender)
	assert.Equal(t, bank.SenderAssistant, turns[1].Sender)
}

func TestChatStatePersistsAcrossRequests(t *testing.T) {
	h := newTestHandler(newMemStore(), &scriptedGen{replies: []string{
		`{"operation":"WITHDRAW","account_id":1}`,
	}})

	rec := postChat(t, h, chatRequest{SessionID: "sess-1", Message: "withdraw from checking"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ClarificationNeeded)
	assert.Equal(t, []string{bank.FieldAmount}, resp.MissingFields)

	// The amount answer lands on the same in-memory session state.
	rec = postChat(t, h, chatRequest{SessionID: "sess-1", Message: "50"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.ClarificationNeeded)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, 50.0, resp.Intent.Amount)
	assert.Len(t, resp.FlowSteps, 4)
}

func TestChatUnknownSession(t *testing.T) {
	h := newTestHandler(newMemStore(), &scriptedGen{})
	rec := postChat(t, h, chatRequest{SessionID: "nope", Message: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRejectsBadRequests(t *testing.T) {
	h := newTestHandler(newMemStore(), &scriptedGen{})

	rec := postChat(t, h, chatRequest{SessionID: "sess-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, h, chatRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest(http.MethodPost, "/channels/web/chat", bytes.NewReader([]byte("{")))
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestChatDegradedReplyIsSystemTurn(t *testing.T) {
	store := newMemStore()
	h := newTestHandler(store, &scriptedGen{err: llm.ErrUnavailable})

	rec := postChat(t, h, chatRequest{SessionID: "sess-1", Message: "balance"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, bank.ErrCodeLLMUnavailable, resp.Error)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, bank.SenderSystem, resp.Messages[1].Sender)

	turns := store.turns["sess-1"]
	require.Len(t, turns, 2)
	assert.Equal(t, bank.SenderSystem, turns[1].Sender)
}
