package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/domain"
)

// ---- fakes ----

type fakeVerifier struct {
	claims auth.TokenClaims
	err    error
	calls  int
	gotTok string
}

func (f *fakeVerifier) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	f.calls++
	f.gotTok = token
	return f.claims, f.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(rw http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
	rw.WriteHeader(http.StatusUnauthorized)
}

type nextRecorder struct {
	calls  int
	gotUID string
	gotOK  bool
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.gotUID, n.gotOK = UserIDFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuth(t *testing.T, verifier *fakeVerifier, header string) (*writeErrRecorder, *nextRecorder, *httptest.ResponseRecorder) {
	t.Helper()

	we := &writeErrRecorder{}
	next := &nextRecorder{}

	h := Auth(verifier, we.fn)(next)

	req := httptest.NewRequest(http.MethodGet, "/auth/v1/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return we, next, rr
}

// ---- tests ----

func TestAuth_NoHeader_TokenMissing(t *testing.T) {
	v := &fakeVerifier{}
	we, next, _ := runAuth(t, v, "")

	if next.calls != 0 {
		t.Fatalf("next should not run")
	}
	if we.calls != 1 || !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
	if v.calls != 0 {
		t.Fatalf("verifier should not be called")
	}
}

func TestAuth_MalformedHeader_TokenInvalid(t *testing.T) {
	for _, header := range []string{"Token abc", "Bearer", "Bearer   "} {
		v := &fakeVerifier{}
		we, next, _ := runAuth(t, v, header)

		if next.calls != 0 {
			t.Fatalf("header %q: next should not run", header)
		}
		if !domain.Is(we.last, "token_invalid") {
			t.Fatalf("header %q: expected token_invalid, got %v", header, we.last)
		}
	}
}

func TestAuth_VerifierError_Propagated(t *testing.T) {
	v := &fakeVerifier{err: domain.ErrTokenExpired()}
	we, next, _ := runAuth(t, v, "Bearer expired-token")

	if next.calls != 0 {
		t.Fatalf("next should not run")
	}
	if !domain.Is(we.last, "token_expired") {
		t.Fatalf("expected token_expired, got %v", we.last)
	}
	if v.gotTok != "expired-token" {
		t.Fatalf("expected raw token passed to verifier, got %q", v.gotTok)
	}
}

func TestAuth_EmptyUserIDClaim_TokenInvalid(t *testing.T) {
	v := &fakeVerifier{claims: auth.TokenClaims{UserID: "  ", Exp: time.Now().Add(time.Minute)}}
	we, next, _ := runAuth(t, v, "Bearer tok")

	if next.calls != 0 {
		t.Fatalf("next should not run")
	}
	if !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
}

func TestAuth_ValidToken_InjectsUser(t *testing.T) {
	v := &fakeVerifier{claims: auth.TokenClaims{UserID: "u-1", Exp: time.Now().Add(time.Minute)}}
	we, next, rr := runAuth(t, v, "Bearer good-token")

	if we.calls != 0 {
		t.Fatalf("unexpected error write: %v", we.last)
	}
	if next.calls != 1 {
		t.Fatalf("expected next to run once")
	}
	if !next.gotOK || next.gotUID != "u-1" {
		t.Fatalf("expected user id in context, got %q ok=%v", next.gotUID, next.gotOK)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get(HeaderXRequestID) == "" {
		t.Fatalf("expected generated request id on response")
	}
}

func TestRequestID_PropagatesExisting(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderXRequestID, "rid-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get(HeaderXRequestID) != "rid-7" {
		t.Fatalf("expected rid-7 echoed, got %q", rr.Header().Get(HeaderXRequestID))
	}
}
