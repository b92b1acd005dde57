package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/omnisphere/auth-service/internal/domain"
)

// DecodeJSON decodes the request body into dst. Unknown fields and trailing
// JSON values are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}

	// A second Decode must hit EOF; anything else means extra values ({}{}).
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return domain.ErrInvalidJSON(err)
	default:
		return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
	}
}
