package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/usecase"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeError traduz os erros do core em status HTTP.
func writeError(w http.ResponseWriter, err error) {
	if de, ok := usecase.AsDomainError(err); ok {
		writeJSON(w, domainStatus(de.Code), ErrorResponse{Error: de.Message, Code: de.Code, Details: de.Details})
		return
	}
	if entity.IsStoreError(err) {
		slog.Error("store indisponível", "error", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, usecase.CodeStoreUnavailable, "Servicio de datos no disponible")
		return
	}
	slog.Error("erro inesperado no handler", "error", err)
	writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Error interno")
}

func domainStatus(code string) int {
	switch code {
	case usecase.CodeValidation:
		return http.StatusBadRequest
	case usecase.CodeLeadNotFound, usecase.CodeTemplateNotFound:
		return http.StatusNotFound
	case usecase.CodeTemplateExists, usecase.CodeNotInTrash, usecase.CodeSyncInProgress:
		return http.StatusConflict
	case usecase.CodeNoPhone:
		return http.StatusUnprocessableEntity
	case usecase.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case usecase.CodeUpstreamFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return false
	}
	return true
}
