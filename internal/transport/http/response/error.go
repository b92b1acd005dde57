package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/omnisphere/auth-service/internal/domain"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindUpstream:       http.StatusBadGateway,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindInternal:       http.StatusInternalServerError,
}

func statusFromKind(kind domain.ErrKind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError renders a domain error as the JSON error shape. Anything that
// is not a domain error becomes a 500 with no detail leaked to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	payload := ErrorPayload{
		Code:      "internal_error",
		Message:   "internal error",
		RequestID: RequestIDFromContext(r),
	}
	status := http.StatusInternalServerError

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		payload.Code = de.Code
		payload.Message = de.Message
		payload.Meta = de.Meta
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: payload})
}
