package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// envelope is the shape of every API response body.
type envelope struct {
	Success bool       `json:"success"`
	Value   any        `json:"value,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeValue(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Value: value})
}

// writeError maps the error kind to a status code. Integrity failures and
// unexpected errors never leak their details to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *core.Error
	if !errors.As(err, &domainErr) {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		writeErrorBody(w, http.StatusInternalServerError, errorBody{
			Code: "Internal", Message: "internal error",
		})
		return
	}

	switch domainErr.Kind {
	case core.KindValidation, core.KindBusinessRule:
		writeErrorBody(w, http.StatusBadRequest, errorBody{
			Code: domainErr.Code, Message: domainErr.Message,
		})
	case core.KindNotFound:
		writeErrorBody(w, http.StatusNotFound, errorBody{
			Code: domainErr.Code, Message: domainErr.Message,
		})
	case core.KindExternal:
		log.FromContext(r.Context()).WarnContext(r.Context(), "upstream failure",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		writeErrorBody(w, http.StatusBadGateway, errorBody{
			Code: domainErr.Code, Message: "upstream provider unavailable",
		})
	default: // KindIntegrity and anything unclassified
		log.FromContext(r.Context()).ErrorContext(r.Context(), "integrity failure",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		writeErrorBody(w, http.StatusInternalServerError, errorBody{
			Code: "Internal", Message: "internal error",
		})
	}
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &body})
}

// decodeBody parses a JSON request body into dst. Unknown fields are
// rejected so typos surface instead of silently zeroing a field.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.ValidationError("Request.Body", "malformed JSON body")
	}
	return nil
}

// pathUUID parses a uuid path segment registered as {name} in the route.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, core.ValidationError("Request.InvalidID",
			"path segment "+name+" is not a valid uuid")
	}
	return id, nil
}
