package auth

import (
	"testing"

	"github.com/omnisphere/auth-service/internal/domain"
)

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, action string) {
	t.Helper()
	for _, e := range *audits {
		if e.action == action {
			return
		}
	}
	t.Fatalf("expected audit action %q, got %v", action, *audits)
}

func strptr(s string) *string { return &s }
