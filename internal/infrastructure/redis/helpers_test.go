package redis

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/omnisphere/auth-service/internal/domain"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func isMissingField(err error, field string) bool {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code == "missing_field" && de.Meta != nil && de.Meta["field"] == field
	}
	return false
}
