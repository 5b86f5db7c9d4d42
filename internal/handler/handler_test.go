package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Skufu/Health-Info-Assistant/internal/analysis"
	"github.com/Skufu/Health-Info-Assistant/internal/chat"
	"github.com/Skufu/Health-Info-Assistant/internal/history"
	"github.com/Skufu/Health-Info-Assistant/internal/query"
	"github.com/Skufu/Health-Info-Assistant/internal/video"
)

type mockChatService struct {
	askFn     func(ctx context.Context, req chat.Request) (*chat.Reply, error)
	historyFn func(ctx context.Context, conversationID string, limit int) ([]history.Message, error)
	clearFn   func(ctx context.Context, conversationID string) error
}

func (m *mockChatService) Ask(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	return m.askFn(ctx, req)
}

func (m *mockChatService) History(ctx context.Context, conversationID string, limit int) ([]history.Message, error) {
	return m.historyFn(ctx, conversationID, limit)
}

func (m *mockChatService) Clear(ctx context.Context, conversationID string) error {
	return m.clearFn(ctx, conversationID)
}

type mockVideoService struct {
	searchFn     func(ctx context.Context, req video.SearchRequest) (*video.SearchResponse, error)
	byCategoryFn func(ctx context.Context, id, pageToken string, maxResults int) (*video.SearchResponse, error)
	featuredFn   func(ctx context.Context) ([]video.CategoryVideos, error)
}

func (m *mockVideoService) Categories() []video.Category { return video.Categories() }

func (m *mockVideoService) Search(ctx context.Context, req video.SearchRequest) (*video.SearchResponse, error) {
	return m.searchFn(ctx, req)
}

func (m *mockVideoService) ByCategory(ctx context.Context, id, pageToken string, maxResults int) (*video.SearchResponse, error) {
	return m.byCategoryFn(ctx, id, pageToken, maxResults)
}

func (m *mockVideoService) Featured(ctx context.Context) ([]video.CategoryVideos, error) {
	return m.featuredFn(ctx)
}

func echoReply(_ context.Context, req chat.Request) (*chat.Reply, error) {
	q, err := query.Validate(req.Message)
	if err != nil {
		return nil, err
	}
	id := req.ConversationID
	if id == "" {
		id = "generated"
	}
	return &chat.Reply{
		ConversationID: id,
		Analysis:       analysis.Analyze(analysis.Input{Query: q, Answer: "## Overview\nok", Source: "gemini"}),
	}, nil
}

func newTestRouter(cs *mockChatService, vs *mockVideoService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if cs == nil {
		cs = &mockChatService{askFn: echoReply}
	}
	if vs == nil {
		vs = &mockVideoService{}
	}
	return NewRouter(zerolog.Nop(), NewChatHandler(cs), NewVideoHandler(vs))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestChat_Ask(t *testing.T) {
	r := newTestRouter(nil, nil)

	w, env := do(t, r, http.MethodPost, "/api/v1/chat", `{"conversationId":"c1","message":"what causes migraines"}`)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200 success, got %d %s", w.Code, w.Body.String())
	}
	var reply chat.Reply
	if err := json.Unmarshal(env.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.ConversationID != "c1" || reply.Analysis.Disclaimer == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestChat_AskErrors(t *testing.T) {
	r := newTestRouter(nil, nil)

	w, env := do(t, r, http.MethodPost, "/api/v1/chat", `{"message":`)
	if w.Code != http.StatusBadRequest || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %d %s", w.Code, w.Body.String())
	}

	w, env = do(t, r, http.MethodPost, "/api/v1/chat", `{"message":"   "}`)
	if w.Code != http.StatusBadRequest || env.Error.Code != "INVALID_QUERY" {
		t.Fatalf("expected INVALID_QUERY, got %d %s", w.Code, w.Body.String())
	}

	cancelled := &mockChatService{askFn: func(context.Context, chat.Request) (*chat.Reply, error) {
		return nil, context.DeadlineExceeded
	}}
	w, env = do(t, newTestRouter(cancelled, nil), http.MethodPost, "/api/v1/chat", `{"message":"what is a fever"}`)
	if w.Code != http.StatusServiceUnavailable || env.Error.Code != "UNAVAILABLE" {
		t.Fatalf("expected UNAVAILABLE, got %d %s", w.Code, w.Body.String())
	}
}

func TestChat_Messages(t *testing.T) {
	var gotID string
	var gotLimit int
	cs := &mockChatService{
		askFn: echoReply,
		historyFn: func(_ context.Context, id string, limit int) ([]history.Message, error) {
			gotID, gotLimit = id, limit
			return []history.Message{{ID: "m1", ConversationID: id, Content: "hello", IsUser: true}}, nil
		},
		clearFn: func(_ context.Context, id string) error {
			if id != "c9" {
				return errors.New("wrong id")
			}
			return nil
		},
	}
	r := newTestRouter(cs, nil)

	w, env := do(t, r, http.MethodGet, "/api/v1/chat/c9/messages?limit=5", "")
	if w.Code != http.StatusOK || gotID != "c9" || gotLimit != 5 {
		t.Fatalf("unexpected history call: %d id=%q limit=%d", w.Code, gotID, gotLimit)
	}
	var data struct {
		Messages []history.Message `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || len(data.Messages) != 1 {
		t.Fatalf("unexpected history body %s", w.Body.String())
	}

	w, _ = do(t, r, http.MethodGet, "/api/v1/chat/c9/messages?limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}

	w, env = do(t, r, http.MethodDelete, "/api/v1/chat/c9/messages", "")
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected clear to succeed, got %d %s", w.Code, w.Body.String())
	}
}

func TestVideo_Endpoints(t *testing.T) {
	vs := &mockVideoService{
		searchFn: func(_ context.Context, req video.SearchRequest) (*video.SearchResponse, error) {
			switch req.Query {
			case "":
				return nil, video.ErrEmptyQuery
			case "broken":
				return nil, errors.New("quota exceeded")
			}
			if req.MaxResults != 3 || req.PageToken != "P" {
				return nil, errors.New("params not bound")
			}
			return &video.SearchResponse{Videos: []video.Video{{ID: "v1"}}}, nil
		},
		byCategoryFn: func(_ context.Context, id, _ string, _ int) (*video.SearchResponse, error) {
			if id != "sleep" {
				return nil, video.ErrUnknownCategory
			}
			return &video.SearchResponse{}, nil
		},
		featuredFn: func(context.Context) ([]video.CategoryVideos, error) {
			return nil, video.ErrMissingAPIKey
		},
	}
	r := newTestRouter(nil, vs)

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/v1/videos/categories", http.StatusOK, ""},
		{"/api/v1/videos/search?q=flu&max=3&pageToken=P", http.StatusOK, ""},
		{"/api/v1/videos/search", http.StatusBadRequest, "BAD_REQUEST"},
		{"/api/v1/videos/search?q=broken", http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"/api/v1/videos/categories/sleep", http.StatusOK, ""},
		{"/api/v1/videos/categories/astrology", http.StatusNotFound, "NOT_FOUND"},
		{"/api/v1/videos/categories/sleep?max=x", http.StatusBadRequest, "BAD_REQUEST"},
		{"/api/v1/videos/featured", http.StatusServiceUnavailable, "UNAVAILABLE"},
	}
	for _, tc := range cases {
		w, env := do(t, r, http.MethodGet, tc.path, "")
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d %s", tc.path, tc.status, w.Code, w.Body.String())
		}
		if tc.code != "" && (env.Error == nil || env.Error.Code != tc.code) {
			t.Fatalf("%s: expected code %s, got %s", tc.path, tc.code, w.Body.String())
		}
	}
}

func TestRouter_HealthMetricsAndCORS(t *testing.T) {
	r := newTestRouter(nil, nil)

	w, _ := do(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthinfo_answers_total") {
		t.Fatalf("unexpected metrics output %d %s", w.Code, w.Body.String())
	}

	w, _ = do(t, r, http.MethodOptions, "/api/v1/chat", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("expected DELETE in allowed methods, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestChat_WebSocket(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(nil, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(chat.Request{ConversationID: "ws1", Message: "how do I treat a cold"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != wsTypeReply || msg.Data == nil || msg.Data.ConversationID != "ws1" {
		t.Fatalf("unexpected reply frame %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello, is this on?")); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("connection should survive a malformed frame: %v", err)
	}
	if msg.Type != wsTypeError || msg.Error == nil || msg.Error.Code != "BAD_REQUEST" {
		t.Fatalf("unexpected frame for non-JSON input %+v", msg)
	}

	if err := conn.WriteJSON(chat.Request{Message: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg = wsMessage{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != wsTypeError || msg.Error == nil || msg.Error.Code != "INVALID_QUERY" {
		t.Fatalf("unexpected error frame %+v", msg)
	}
}
