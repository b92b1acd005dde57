package http_handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
	"github.com/omnisphere/auth-service/internal/infrastructure/memory"
	"github.com/omnisphere/auth-service/internal/infrastructure/provider"
	"github.com/omnisphere/auth-service/internal/infrastructure/security"
	"github.com/omnisphere/auth-service/internal/transport/http/middleware"
)

const testBotToken = "123456:test-bot-token"

// -------------------------
// Test wiring (pure unit)
// -------------------------

type testEnv struct {
	svc      *auth.Service
	users    *memory.UserRepo
	codes    *memory.ResetCodeStore
	registry *provider.Registry

	auth     *AuthHandler
	provider *ProviderHandler
	link     *LinkHandler
}

func newTestEnv(t *testing.T, secureCookies bool) *testEnv {
	t.Helper()

	users := memory.NewUserRepo()
	sessions := memory.NewSessionStore()
	codes := memory.NewResetCodeStore()
	avatars := memory.NewAvatarStore()
	pub := memory.NewNoopPublisher()

	hasher := security.NewBcryptHasher(4)
	signer := security.NewJWTSigner("test-secret", "auth-service-test")

	svc := auth.NewService(users, hasher, signer, sessions, codes, avatars, pub, auth.Config{
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
		ResetCodeTTL: 30 * time.Minute,
	})

	registry := provider.NewRegistry(
		provider.NewSignedPayloadClient(provider.SignedPayloadConfig{
			Provider: domain.ProviderTelegram,
			BotToken: testBotToken,
		}),
	)

	refreshTTL := 7 * 24 * time.Hour
	return &testEnv{
		svc:      svc,
		users:    users,
		codes:    codes,
		registry: registry,

		auth:     NewAuthHandler(svc, refreshTTL, secureCookies),
		provider: NewProviderHandler(svc, registry, refreshTTL, secureCookies),
		link:     NewLinkHandler(svc, registry),
	}
}

// -------------------------
// Helpers
// -------------------------

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope from r into out.
func mustReadData(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", string(raw), err)
	}
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// readRefreshCookie returns the refresh cookie under either name variant.
func readRefreshCookie(res *http.Response) *http.Cookie {
	if c := readCookie(res, "__Host-"+security.RefreshCookieName); c != nil {
		return c
	}
	return readCookie(res, security.RefreshCookieName)
}

// withUserCtx injects user_id into request context (auth middleware key).
func withUserCtx(req *http.Request, userID string) *http.Request {
	ctx := middleware.WithUser(req.Context(), userID)
	return req.WithContext(ctx)
}

// withURLParam injects chi URL param (e.g. /link/{provider}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

// signedTelegramPayload builds a widget payload with a valid hash. A
// current auth_date is filled in unless the caller pins one.
func signedTelegramPayload(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	if _, ok := out["auth_date"]; !ok {
		out["auth_date"] = strconv.FormatInt(time.Now().Unix(), 10)
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+out[k])
	}

	secret := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))

	out["hash"] = hex.EncodeToString(mac.Sum(nil))
	return out
}

type userBody struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	AvatarID    *string `json:"avatar_id"`
	HasPassword bool    `json:"has_password"`
}

type tokensBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type authBody struct {
	User    userBody   `json:"user"`
	Tokens  tokensBody `json:"tokens"`
	Outcome string     `json:"outcome"`
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta"`
	} `json:"error"`
}

func mustReadError(t *testing.T, r io.Reader) errorBody {
	t.Helper()

	var out errorBody
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.Error.Code == "" {
		t.Fatalf("expected error code in body")
	}
	return out
}
