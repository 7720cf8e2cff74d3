package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sashashura/netbox/db"
	"github.com/sashashura/netbox/dcim"
	"github.com/sashashura/netbox/scripts"
)

// errorEnvelope is the JSON body of every non-2xx response.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// listEnvelope wraps list responses with their result count.
type listEnvelope struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeList(w http.ResponseWriter, count int, results any) {
	writeJSON(w, http.StatusOK, listEnvelope{Count: count, Results: results})
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	var envelope errorEnvelope
	envelope.Error.Status = status
	envelope.Error.Message = err.Error()
	writeJSON(w, status, envelope)
}

// writeError maps storage and script errors to HTTP statuses: missing
// objects are 404, conflicts and dangling references 409, script rejections
// and validation failures 422.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var rejection *scripts.RejectionError
	switch {
	case errors.As(err, &rejection), errors.Is(err, dcim.ErrPlacement):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrNoCableForInterface):
		writeErrorStatus(w, http.StatusNotFound, err)
	case errors.Is(err, db.ErrDuplicate), errors.Is(err, db.ErrReferenced):
		writeErrorStatus(w, http.StatusConflict, err)
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeErrorStatus(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoding request body : %w", err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing id %q : %w", raw, err)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent or malformed
// values fall back to zero.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// queryUUID parses an optional UUID query parameter; absent or malformed
// values fall back to uuid.Nil.
func queryUUID(r *http.Request, name string) uuid.UUID {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// newID generates a UUIDv7 primary key.
func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating id : %w", err)
	}
	return id, nil
}
