// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"encoding/json"
	stdliberrors "errors"
	"io"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/errors"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

// DefaultMaxBodySize bounds request bodies when the server config sets none.
const DefaultMaxBodySize int64 = 4 << 20

// parsePagination extracts page and page_size from query parameters.
func parsePagination(r *http.Request) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			p.PageSize = n
		}
	}
	return p
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeData wraps data in the success envelope.
func writeData[T any](w http.ResponseWriter, r *http.Request, statusCode int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = requestID(r)
	writeJSON(w, statusCode, resp)
}

func requestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}

// writeAppError maps an error to its HTTP status through the AppError code.
// Server-side failures are logged and masked.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := errors.DefaultMessageForCode(code)
	detail := ""
	var appErr *errors.AppError
	if stdliberrors.As(err, &appErr) {
		message = appErr.Message
		detail = appErr.Detail
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("code", string(code)),
			logging.Err(err))
		if code == errors.CodeUnknown || code == errors.ErrCodeInternal {
			code = errors.ErrCodeInternal
			message = errors.DefaultMessageForCode(code)
			detail = ""
		}
	}

	resp := common.NewErrorResponse(string(code), message, detail)
	resp.RequestID = requestID(r)
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields and bodies
// larger than limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stdliberrors.As(err, &tooLarge):
			return errors.Newf(errors.ErrCodeBadRequest, "request body exceeds %d bytes", limit)
		case stdliberrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is empty")
		default:
			return errors.InvalidParam("invalid request body").WithDetail(err.Error())
		}
	}
	return nil
}

//Personal.AI order the ending
