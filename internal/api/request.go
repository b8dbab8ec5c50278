package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/internal/middleware"
	"github.com/jobizaaa/network/pkg/response"
	"github.com/jobizaaa/network/pkg/validator"
)

const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object into dst, rejecting unknown fields, and
// runs its validate tags. It writes the error response itself and returns false
// on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			response.BadRequest(w, "request body is empty")
		case errors.As(err, &maxErr):
			response.BadRequest(w, "request body is too large")
		default:
			response.BadRequest(w, "invalid request body")
		}
		return false
	}
	if dec.More() {
		response.BadRequest(w, "request body must contain a single JSON object")
		return false
	}

	if err := validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.ValidationFailed(w, verrs)
			return false
		}
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// currentMember returns the authenticated member id, writing 401 when absent.
func currentMember(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetMemberID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
	}
	return id, ok
}

// uuidParam parses a chi URL parameter as a UUID, writing 400 when malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.BadRequest(w, "invalid "+label+" id")
		return uuid.Nil, false
	}
	return id, true
}

// pageFromQuery reads ?page= and ?limit=. Bad or missing values fall back to
// the defaults.
func pageFromQuery(r *http.Request) domain.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return domain.NewPage(page, limit)
}
