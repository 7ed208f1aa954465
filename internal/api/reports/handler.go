package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
)

// ReportService define o contrato que o Handler espera da camada de Serviço.
type ReportService interface {
	Summary(ctx context.Context) (domain.ReportSummary, error)
}

// Handler agrupa os métodos de Handler de relatórios.
type Handler struct {
	Service ReportService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ReportService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// SummaryHandler lida com a requisição GET /v1/reports/summary.
// @Summary Resumo gerencial do intercâmbio
// @Description Retorna contagens de recursos por categoria, solicitações por status e a taxa de aprovação, computadas sob demanda.
// @Tags reports
// @Produce json
// @Success 200 {object} domain.ReportSummary "Resumo computado"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	summary, err := h.Service.Summary(r.Context())
	h.handleServiceResponse(w, r, summary, err, http.StatusOK)
}
