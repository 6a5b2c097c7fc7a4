package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/siyuanflow/internal/apperr"
	"github.com/starford/siyuanflow/internal/siyuan"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error    string `json:"error" validate:"required"`
	Kind     string `json:"kind,omitempty"`
	Code     string `json:"code,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// faultBody describes err, keeping the kernel error fields when present.
func faultBody(err error) errResponse {
	if se, ok := siyuan.AsError(err); ok {
		return errResponse{Error: se.Error(), Kind: se.Kind.String(), Code: se.Code, Endpoint: se.Endpoint}
	}
	return errorBody(err.Error())
}

// statusOf maps an error to the HTTP status the gateway answers with.
func statusOf(err error) int {
	if se, ok := siyuan.AsError(err); ok {
		switch se.Kind {
		case siyuan.KindApplication:
			return http.StatusUnprocessableEntity
		case siyuan.KindTransport:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	switch {
	case errors.Is(err, apperr.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrStatementNotAllowed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), faultBody(err))
}
