package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/programbi/crm-leads/internal/infra/http/middleware"
	"github.com/programbi/crm-leads/internal/infra/integration/shopify"
	"github.com/programbi/crm-leads/internal/usecase"
)

// RelayHandler expõe POST /customers. As credenciais do e-commerce ficam só no servidor.
type RelayHandler struct {
	Upsert *usecase.UpsertCustomerUseCase
	// ConfigErr não-nil faz toda chamada responder 500.
	ConfigErr error
	Logger    *slog.Logger
}

func NewRelayHandler(uc *usecase.UpsertCustomerUseCase, configErr error) *RelayHandler {
	return &RelayHandler{Upsert: uc, ConfigErr: configErr, Logger: slog.Default()}
}

func (h *RelayHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	if h.ConfigErr != nil || h.Upsert == nil {
		h.Logger.Error("relay sem configuração", "error", h.ConfigErr)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Server misconfiguration"})
		return
	}

	var input usecase.UpsertCustomerInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	out, err := h.Upsert.Execute(r.Context(), input)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	if out.Customer.ID == 0 {
		middleware.RecordUpstreamError("empty_id")
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Upstream returned no customer id"})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *RelayHandler) writeUpstreamError(w http.ResponseWriter, err error) {
	if de, ok := usecase.AsDomainError(err); ok && de.Code == usecase.CodeValidation {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: de.Message, Details: de.Details})
		return
	}

	if apiErr, ok := shopify.AsAPIError(err); ok {
		if apiErr.IsClientError() {
			h.Logger.Warn("e-commerce rejeitou o cliente", "operation", apiErr.Operation, "status", apiErr.StatusCode)
			writeJSON(w, apiErr.StatusCode, ErrorResponse{
				Error:   "Shopify rejected the request",
				Details: rawDetails(apiErr.Body),
			})
			return
		}
		middleware.RecordUpstreamError(apiErr.Operation)
		h.Logger.Error("e-commerce respondeu erro", "operation", apiErr.Operation, "status", apiErr.StatusCode)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Shopify upstream error"})
		return
	}

	middleware.RecordUpstreamError("transport")
	h.Logger.Error("falha ao falar com o e-commerce", "error", err)
	writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Shopify unreachable"})
}

// rawDetails repassa o corpo do e-commerce: JSON quando válido, texto caso contrário.
func rawDetails(body string) any {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}
