package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"librarymanager/internal/httpx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type createUserRequest struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
}

type createBookRequest struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
}

// Range checking of the score is left to the lending service so the
// response carries its INVALID_SCORE kind.
type returnBookRequest struct {
	Score *float64 `json:"score" validate:"required"`
}

// decodeAndValidate writes the 400 response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Request body is required", nil)
		default:
			httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		}
		return false
	}

	if errs := ValidateStruct(dst); len(errs) > 0 {
		details := make([]httpx.ErrorDetail, 0, len(errs))
		for _, e := range errs {
			details = append(details, httpx.ErrorDetail{Field: e.Field, Message: e.Message})
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
		return false
	}
	return true
}

// pathID reads a positive integer path value and writes a 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid id", []httpx.ErrorDetail{
			{Field: name, Message: name + " must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}
