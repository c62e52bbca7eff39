package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Worldstreet-team/xtreme-livestream/internal/domain"
	"github.com/Worldstreet-team/xtreme-livestream/internal/token"
)

const testSecret = "test-secret"

type fakeChatService struct {
	page    *domain.HistoryPage
	pageErr error
	sent    *domain.ChatMessage
	sendErr error

	gotStreamID string
	gotBefore   string
	gotLimit    int
	gotSender   domain.Identity
}

func (s *fakeChatService) GetHistory(ctx context.Context, streamID, beforeID string, limit int) (*domain.HistoryPage, error) {
	s.gotStreamID = streamID
	s.gotBefore = beforeID
	s.gotLimit = limit
	return s.page, s.pageErr
}

func (s *fakeChatService) SendMessage(ctx context.Context, sender domain.Identity, streamID string, payload domain.Payload) (*domain.ChatMessage, error) {
	s.gotSender = sender
	s.gotStreamID = streamID
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return s.sent, nil
}

func newTestRouter(svc *fakeChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := NewAuthMiddleware(token.NewVerifier(testSecret))
	api := r.Group("/api/v1")
	NewChatHandler(svc, auth).RegisterRoutes(api)
	return r
}

func authToken(t *testing.T, userID, username string) string {
	t.Helper()
	claims := token.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           userID,
		Username:         username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestGetHistoryEndpoint(t *testing.T) {
	svc := &fakeChatService{page: &domain.HistoryPage{
		Messages: []domain.ChatMessage{{
			ID:       "m1",
			StreamID: "s1",
			Sender:   domain.Sender{ID: "u1", Username: "u1"},
			Payload:  domain.TextPayload{Body: "hello"},
		}},
		NextCursor: "m1",
		HasMore:    true,
	}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams/s1/chat?before=m9&limit=25", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "s1", svc.gotStreamID)
	assert.Equal(t, "m9", svc.gotBefore)
	assert.Equal(t, 25, svc.gotLimit)

	var page domain.HistoryPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Messages, 1)
	assert.True(t, page.HasMore)
}

func TestGetHistoryStoreDown(t *testing.T) {
	svc := &fakeChatService{pageErr: domain.ErrStoreUnavailable}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams/s1/chat", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STORE_UNAVAILABLE", env.Error.Code)
}

func TestGetHistoryBadLimit(t *testing.T) {
	r := newTestRouter(&fakeChatService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams/s1/chat?limit=lots", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageEndpoint(t *testing.T) {
	svc := &fakeChatService{sent: &domain.ChatMessage{
		ID:       "m1",
		StreamID: "s1",
		Sender:   domain.Sender{ID: "user-1", Username: "satoshi"},
		Payload:  domain.TextPayload{Body: "gm"},
	}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/s1/chat",
		strings.NewReader(`{"type":"text","content":"gm"}`))
	req.Header.Set("Authorization", "Bearer "+authToken(t, "user-1", "satoshi"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", svc.gotSender.UserID)
	assert.Equal(t, "satoshi", svc.gotSender.Username)
}

func TestSendMessageRequiresAuth(t *testing.T) {
	r := newTestRouter(&fakeChatService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/s1/chat",
		strings.NewReader(`{"type":"text","content":"gm"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessageErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"chat disabled", domain.ErrChatDisabled, http.StatusForbidden, "CHAT_DISABLED"},
		{"stream missing", domain.ErrStreamNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store down", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"validation", &domain.ValidationError{Field: "content", Reason: "too long"}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeChatService{sendErr: tt.err})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/s1/chat",
				strings.NewReader(`{"type":"text","content":"gm"}`))
			req.Header.Set("Authorization", "Bearer "+authToken(t, "user-1", "satoshi"))
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestSendMessageUnknownKind(t *testing.T) {
	r := newTestRouter(&fakeChatService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/s1/chat",
		strings.NewReader(`{"type":"sticker","content":"??"}`))
	req.Header.Set("Authorization", "Bearer "+authToken(t, "user-1", "satoshi"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
