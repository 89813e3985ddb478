package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/orgledger/orgledger/modules/org/presentation/viewmodels"
	"github.com/orgledger/orgledger/pkg/composables"
	"github.com/orgledger/orgledger/pkg/serrors"
)

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	meta := map[string]string{}
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	writeJSON(w, status, viewmodels.APIError{
		Code:    code,
		Message: message,
		Fields:  fields,
		Meta:    meta,
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *serrors.Error
	if errors.As(err, &svcErr) {
		status := serrors.HTTPStatus(svcErr)
		if status >= http.StatusInternalServerError {
			composables.UseLogger(r.Context()).WithError(err).Error("request failed")
		}
		writeAPIError(w, r, status, svcErr.Code, svcErr.Message, svcErr.Fields)
		return
	}
	composables.UseLogger(r.Context()).WithError(err).Error("request failed")
	writeAPIError(w, r, http.StatusInternalServerError, "ORG_INTERNAL", "internal error", nil)
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate accepts 2006-01-02 or RFC3339 and normalizes to UTC.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseOptionalDate(v *string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := parseDate(*v)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
