package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-assistant/internal/config"
	"support-assistant/internal/dialogue"
	"support-assistant/internal/intent"
	"support-assistant/internal/knowledge"
	"support-assistant/internal/store"
	"support-assistant/internal/types"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	base, err := knowledge.Default()
	require.NoError(t, err)
	classifier, err := intent.Build(base)
	require.NoError(t, err)
	manager, err := dialogue.NewManager(classifier, base)
	require.NoError(t, err)
	sessions := store.NewMemoryStore(time.Minute, 40)
	cfg := config.Config{AllowedOrigin: "*", SessionTTL: time.Minute}
	return NewServer(cfg, manager, classifier, sessions, nil), sessions
}

func do(t *testing.T, s *Server, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func startSession(t *testing.T, s *Server, name string) types.SessionResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/session", types.SessionRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[types.SessionResponse](t, rec)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMenu(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/menu", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	menu := decode[types.MenuResponse](t, rec)
	assert.Equal(t, "🔹 Please select an option:", menu.Header)
	require.Len(t, menu.Options, 7)
	assert.Equal(t, types.MenuOption{Key: "7", Title: "Exit Chat 🚪", Intent: "exit"}, menu.Options[6])
}

func TestSession(t *testing.T) {
	s, sessions := newTestServer(t)

	t.Run("named", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/session", types.SessionRequest{Name: "ada lovelace"})
		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decode[types.SessionResponse](t, rec)

		assert.Equal(t, "Ada Lovelace", resp.Name)
		assert.Equal(t, "👋 Hello Ada Lovelace! How can I help you today?", resp.Greeting)
		assert.Len(t, resp.Menu, 7)
		assert.Equal(t, resp.SessionID, rec.Header().Get("X-Session-Id"))

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, CookieName, cookies[0].Name)
		assert.Equal(t, resp.SessionID, cookies[0].Value)

		transcript, err := sessions.Transcript(resp.SessionID)
		require.NoError(t, err)
		require.Len(t, transcript, 1)
		assert.Equal(t, "assistant", transcript[0].Role)
	})

	t.Run("default name", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/session", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Guest", decode[types.SessionResponse](t, rec).Name)
	})

	t.Run("invalid name", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/session", types.SessionRequest{Name: "r2d2"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[types.ErrorResponse](t, rec).Error, "letters and spaces")
	})
}

func TestChat(t *testing.T) {
	s, sessions := newTestServer(t)
	sess := startSession(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "2"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ChatResponse](t, rec)
	assert.Equal(t, "refund_process", resp.Intent)
	assert.Equal(t, "💸 Your refund request is being processed. You will hear from us soon!", resp.Reply)
	assert.Equal(t, []string{"Check refund status", "Contact refund team"}, resp.Suggestions)
	assert.Empty(t, resp.Menu)
	assert.False(t, resp.Terminated)

	stored, err := sessions.Get(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, intent.RefundProcess, stored.LastIntent)

	transcript, err := sessions.Transcript(sess.SessionID)
	require.NoError(t, err)
	assert.Len(t, transcript, 3)
}

func TestChat_NegativeSentiment(t *testing.T) {
	s, _ := newTestServer(t)
	sess := startSession(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "bad service"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ChatResponse](t, rec)
	assert.Equal(t, "complaint", resp.Intent)
	assert.Equal(t, "negative", resp.Sentiment)
	assert.Equal(t, "😥 I'm sorry to hear that. We will try to improve your experience!", resp.Acknowledgment)
}

func TestChat_UnknownShowsMenu(t *testing.T) {
	s, _ := newTestServer(t)
	sess := startSession(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "cancel that thing I bought"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ChatResponse](t, rec)
	assert.Equal(t, "unknown", resp.Intent)
	assert.Len(t, resp.Menu, 7)
}

func TestChat_SessionFromHeader(t *testing.T) {
	s, _ := newTestServer(t)
	sess := startSession(t, s, "Ada")

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: "1"}, func(r *http.Request) {
		r.Header.Set("X-Session-Id", sess.SessionID)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.SessionID, decode[types.ChatResponse](t, rec).SessionID)
}

func TestChat_AutoCreatesSession(t *testing.T) {
	s, sessions := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: "where is my order"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ChatResponse](t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "order_details", resp.Intent)

	stored, err := sessions.Get(resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Guest", stored.Name)
}

func TestChat_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	sess := startSession(t, s, "Ada")

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty message", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "⚠️ Empty input. Please try again.", decode[types.ErrorResponse](t, rec).Error)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: "s_missing", Message: "hi"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("terminated session", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "7"})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[types.ChatResponse](t, rec)
		assert.True(t, resp.Terminated)
		assert.Equal(t, "👋 Thank you for visiting, Ada! We hope to see you again soon. 🌟", resp.Reply)

		rec = do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "2"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestChat_EmptyMessageOpensNoSession(t *testing.T) {
	s, sessions := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: " \t "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "⚠️ Empty input. Please try again.", decode[types.ErrorResponse](t, rec).Error)
	assert.Zero(t, sessions.Len())
	assert.Empty(t, rec.Result().Cookies())
}

func TestChat_ConcurrentTurnsOnOneSession(t *testing.T) {
	s, sessions := newTestServer(t)
	sess := startSession(t, s, "Ada")

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{SessionID: sess.SessionID, Message: "1"})
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	stored, err := sessions.Get(sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, turns, stored.Turns)
	assert.Equal(t, intent.OrderDetails, stored.LastIntent)
}

func TestChat_SessionCookie(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: "1"})
	require.Equal(t, http.StatusOK, rec.Code)
	sid := decode[types.ChatResponse](t, rec).SessionID
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, sid, cookies[0].Value)
	assert.Equal(t, 60, cookies[0].MaxAge, "cookie lives as long as an idle session")
	assert.True(t, cookies[0].HttpOnly)

	withCookie := func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: sid}) }
	rec = do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: "2"}, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sid, decode[types.ChatResponse](t, rec).SessionID)
	assert.Empty(t, rec.Result().Cookies(), "known sessions are not re-issued")

	rec = do(t, s, http.MethodPost, "/api/chat", types.ChatRequest{Message: "7"}, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestGetSessionID(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*http.Request)
		want   string
	}{
		{name: "none", mutate: func(*http.Request) {}, want: ""},
		{name: "query", mutate: func(r *http.Request) { r.URL.RawQuery = "sessionId=s_query" }, want: "s_query"},
		{name: "header beats query", mutate: func(r *http.Request) {
			r.URL.RawQuery = "sessionId=s_query"
			r.Header.Set("X-Session-Id", "s_header")
		}, want: "s_header"},
		{name: "cookie beats header", mutate: func(r *http.Request) {
			r.Header.Set("X-Session-Id", "s_header")
			r.AddCookie(&http.Cookie{Name: CookieName, Value: "s_cookie"})
		}, want: "s_cookie"},
		{name: "empty cookie falls through", mutate: func(r *http.Request) {
			r.Header.Set("X-Session-Id", "s_header")
			r.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
		}, want: "s_header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			tt.mutate(r)
			assert.Equal(t, tt.want, getSessionID(r))
		})
	}
}

func TestClassify(t *testing.T) {
	s, sessions := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/classify", types.ClassifyRequest{Message: "I want a refund please"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ClassifyResponse](t, rec)
	assert.Equal(t, "refund_process", resp.Intent)
	assert.Equal(t, "refund_process", resp.Predicted)
	assert.Equal(t, 87, resp.Score)
	assert.Equal(t, "i want a refund_process please", resp.Preprocessed)
	assert.Zero(t, sessions.Len())

	rec = do(t, s, http.MethodPost, "/api/classify", types.ClassifyRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
