package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"toolgate/internal/access"
	"toolgate/internal/adapter/repo"
	"toolgate/internal/domain"
	"toolgate/internal/http/handlers"
	"toolgate/internal/http/httpapi"
	"toolgate/internal/infra"
	"toolgate/internal/middleware"
	"toolgate/internal/providers/chat"
)

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) Complete(_ context.Context, _ []chat.Message, _ int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeShortener struct {
	short string
	err   error
}

func (f *fakeShortener) Shorten(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.short, nil
}

type testEnv struct {
	store     *repo.StoreMem
	app       *handlers.App
	router    http.Handler
	chat      *fakeChat
	shortener *fakeShortener
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &infra.Config{
		AppEnv:             "test",
		JWTSecret:          "test-secret",
		IssuerKey:          "issuer-key",
		DefaultLocale:      "en",
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMin:    1000,
	}
	store := repo.NewStoreMem()
	logger := infra.NewLogger("test")
	svc := access.NewService(store, logger, access.Options{})
	chatProvider := &fakeChat{reply: "pong"}
	shortener := &fakeShortener{short: "https://vpl.ink/abc"}
	app := &handlers.App{
		Config:    cfg,
		Logger:    logger,
		Access:    svc,
		Chat:      chatProvider,
		Shortener: shortener,
	}
	return &testEnv{
		store:     store,
		app:       app,
		router:    httpapi.NewRouter(app, nil),
		chat:      chatProvider,
		shortener: shortener,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func bearer(t *testing.T, secret, userID string) func(*http.Request) {
	t.Helper()
	token, err := middleware.SignJWT(secret, userID, "", time.Hour)
	if err != nil {
		t.Fatalf("SignJWT() error: %v", err)
	}
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(res.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestVerifyRedeemsToken(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{UserID: "u1"})
	env.store.SeedToken(domain.UnlockToken{
		Token:     "tok1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})

	res := env.do(t, http.MethodPost, "/v1/verify", map[string]string{"user_id": "u1", "token": "tok1"}, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
	}
	var body struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		NewExpiry int64  `json:"new_expiry"`
	}
	decodeBody(t, res, &body)
	if !body.Success {
		t.Fatalf("success = false, message = %q", body.Message)
	}
	if body.Message != "24 hours access added!" {
		t.Fatalf("message = %q", body.Message)
	}
	if body.NewExpiry <= time.Now().UnixMilli() {
		t.Fatalf("new_expiry = %d not in the future", body.NewExpiry)
	}

	// Replay: expected rejection, still HTTP 200.
	res = env.do(t, http.MethodPost, "/v1/verify", map[string]string{"user_id": "u1", "token": "tok1"}, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want %d", res.Code, http.StatusOK)
	}
	decodeBody(t, res, &body)
	if body.Success || body.Message != "Already used" {
		t.Fatalf("replay = %+v", body)
	}
}

func TestVerifyLocalizedMessage(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/v1/verify", map[string]string{"user_id": "u1", "token": "nope"}, func(r *http.Request) {
		r.Header.Set("X-Locale", "id")
	})
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, res, &body)
	if body.Success || body.Message != "Tautan tidak valid" {
		t.Fatalf("body = %+v", body)
	}
}

func TestVerifyMissingParameters(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodPost, "/v1/verify", map[string]string{"user_id": "u1"}, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusBadRequest)
	}
}

func TestChatRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodPost, "/v1/ai/chat", map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}}, nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusUnauthorized)
	}
}

func TestChatDeniedWhenExpired(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(-time.Minute),
	})

	res := env.do(t, http.MethodPost, "/v1/ai/chat",
		map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}},
		bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusForbidden)
	}
	if env.chat.calls != 0 {
		t.Fatalf("chat provider called %d times behind a closed gate", env.chat.calls)
	}
}

func TestChatUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodPost, "/v1/ai/chat",
		map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}},
		bearer(t, "test-secret", "ghost"))
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusNotFound)
	}
}

func TestChatRelaysAndMetersUsage(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
	})

	res := env.do(t, http.MethodPost, "/v1/ai/chat",
		map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}},
		bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var body struct {
		Success  bool   `json:"success"`
		Response string `json:"response"`
	}
	decodeBody(t, res, &body)
	if !body.Success || body.Response != "pong" {
		t.Fatalf("body = %+v", body)
	}

	rec, err := env.store.Ledger().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.ToolsUsed != 1 {
		t.Fatalf("tools_used = %d, want 1", rec.ToolsUsed)
	}
}

func TestChatUpstreamFailureDoesNotMeter(t *testing.T) {
	env := newTestEnv(t)
	env.chat.err = errors.New("upstream down")
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
	})

	res := env.do(t, http.MethodPost, "/v1/ai/chat",
		map[string]any{"messages": []map[string]string{{"role": "user", "content": "hi"}}},
		bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusBadGateway)
	}

	rec, err := env.store.Ledger().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.ToolsUsed != 0 {
		t.Fatalf("tools_used = %d after failed relay, want 0", rec.ToolsUsed)
	}
}

func TestChatRequiresMessages(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
	})
	res := env.do(t, http.MethodPost, "/v1/ai/chat", map[string]any{}, bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusBadRequest)
	}
}

func TestShortlinkRejectsUserMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
	})

	res := env.do(t, http.MethodPost, "/v1/shortlink",
		map[string]string{"url": "https://example.com", "user_id": "someone-else"},
		bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusForbidden)
	}
}

func TestShortlinkRelays(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
	})

	res := env.do(t, http.MethodPost, "/v1/shortlink",
		map[string]string{"url": "https://example.com", "user_id": "u1"},
		bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var body struct {
		Success  bool   `json:"success"`
		ShortURL string `json:"short_url"`
	}
	decodeBody(t, res, &body)
	if !body.Success || body.ShortURL != "https://vpl.ink/abc" {
		t.Fatalf("body = %+v", body)
	}

	rec, err := env.store.Ledger().Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.ToolsUsed != 1 {
		t.Fatalf("tools_used = %d, want 1", rec.ToolsUsed)
	}
}

func TestIssueTokenRequiresIssuerKey(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodPost, "/v1/tokens", map[string]string{"user_id": "u1"}, func(r *http.Request) {
		r.Header.Set("X-Issuer-Key", "wrong")
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusUnauthorized)
	}
}

func TestIssueTokenThenRedeem(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodPost, "/v1/tokens", map[string]string{"user_id": "u1"}, func(r *http.Request) {
		r.Header.Set("X-Issuer-Key", "issuer-key")
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var issued struct {
		Token     string `json:"token"`
		UserID    string `json:"user_id"`
		ExpiresAt int64  `json:"expires_at"`
	}
	decodeBody(t, res, &issued)
	if issued.Token == "" || issued.UserID != "u1" {
		t.Fatalf("issued = %+v", issued)
	}

	res = env.do(t, http.MethodPost, "/v1/verify", map[string]string{"user_id": "u1", "token": issued.Token}, nil)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeBody(t, res, &body)
	if !body.Success {
		t.Fatalf("redeem of issued token failed: %+v", body)
	}
}

func TestAccessStatus(t *testing.T) {
	env := newTestEnv(t)
	env.store.SeedRecord(domain.AccessRecord{
		UserID:       "u1",
		AccessExpiry: time.Now().Add(time.Hour),
		AccessCount:  3,
		ToolsUsed:    7,
	})

	res := env.do(t, http.MethodGet, "/v1/access/status", nil, bearer(t, "test-secret", "u1"))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusOK)
	}
	var body struct {
		UserID      string `json:"user_id"`
		Entitled    bool   `json:"entitled"`
		AccessCount int64  `json:"access_count"`
		ToolsUsed   int64  `json:"tools_used"`
	}
	decodeBody(t, res, &body)
	if body.UserID != "u1" || !body.Entitled || body.AccessCount != 3 || body.ToolsUsed != 7 {
		t.Fatalf("body = %+v", body)
	}
}

func TestAccessStatusUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodGet, "/v1/access/status", nil, bearer(t, "test-secret", "ghost"))
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.Code, http.StatusNotFound)
	}
}
