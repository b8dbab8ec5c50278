package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidTarget: http.StatusBadRequest,
	domain.KindNotFound:      http.StatusNotFound,
	domain.KindForbidden:     http.StatusForbidden,
	domain.KindConflict:      http.StatusConflict,
	domain.KindInvalid:       http.StatusBadRequest,
	domain.KindUnauthorized:  http.StatusUnauthorized,
}

// respondError writes the response for a service error. Anything that is not a
// client-facing *domain.Error is logged and reported as a generic 500.
func respondError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		if status, ok := kindStatus[derr.Kind]; ok {
			response.Error(w, status, string(derr.Kind), derr.Message)
			return
		}
	}

	if logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
	response.InternalError(w, "internal server error")
}
