package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
	"gomuni/internal/pkg/middleware"
)

// ExchangeService define o contrato que o Handler espera do Motor de Intercâmbio.
type ExchangeService interface {
	Submit(ctx context.Context, requester domain.Requester, input domain.SubmitRequest) (domain.ExchangeRequest, error)
	Decide(ctx context.Context, decider domain.Requester, requestID string, outcome domain.DecisionOutcome) (domain.ExchangeRequest, error)
	ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error)
}

// Handler agrupa todos os métodos de Handler do fluxo de intercâmbio.
type Handler struct {
	Service ExchangeService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ExchangeService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
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
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category),
			map[string]interface{}{"path": r.URL.Path})
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

// requesterFromContext extrai a identidade municipal do funcionário autenticado.
func requesterFromContext(ctx context.Context) (domain.Requester, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		return domain.Requester{}, false
	}
	return domain.Requester{EmployeeID: claims.UserID, Municipality: claims.Municipality}, true
}

// RequestsHandler despacha GET (listagem) e POST (submissão) em /v1/requests.
func (h *Handler) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRequests(w, r)
	case http.MethodPost:
		h.submitRequest(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// submitRequest lida com a requisição POST /v1/requests.
// @Summary Submete uma solicitação de empréstimo
// @Description Registra uma solicitação Pendente para um recurso de outro município. A quantidade do catálogo não é alterada na submissão.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body domain.SubmitRequest true "Recurso, quantidade e justificativa"
// @Success 201 {object} domain.ExchangeRequest "Solicitação registrada como Pendente"
// @Failure 400 {object} domain.ErrorResponse "Quantidade não positiva ou justificativa ausente"
// @Failure 404 {object} domain.ErrorResponse "Recurso não encontrado"
// @Failure 409 {object} domain.ErrorResponse "Quantidade acima da disponibilidade ou solicitação pendente duplicada"
// @Security BearerAuth
// @Router /requests [post]
func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil,
			apperror.NewUnauthorizedError("Autenticação necessária para submeter solicitações."), http.StatusOK)
		return
	}

	var input domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil,
			apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	created, err := h.Service.Submit(ctx, requester, input)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

// listRequests lida com a requisição GET /v1/requests.
// @Summary Lista solicitações de empréstimo
// @Description Consulta o livro de solicitações. view=sent restringe às enviadas pelo município do funcionário; view=received às recebidas sobre os recursos dele.
// @Tags requests
// @Produce json
// @Param status query string false "Filtro de status (pending, approved, rejected)"
// @Param view query string false "sent | received (padrão: todas)"
// @Success 200 {array} domain.ExchangeRequest "Solicitações em ordem de submissão"
// @Failure 400 {object} domain.ErrorResponse "Status ou view inválidos"
// @Security BearerAuth
// @Router /requests [get]
func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requester, ok := requesterFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil,
			apperror.NewUnauthorizedError("Autenticação necessária para consultar solicitações."), http.StatusOK)
		return
	}

	query := r.URL.Query()
	filter := domain.RequestFilter{
		Status: domain.RequestStatus(query.Get("status")),
	}

	switch view := query.Get("view"); view {
	case "sent":
		filter.RequestingMunicipality = requester.Municipality
	case "received":
		filter.OwnerMunicipality = requester.Municipality
	case "":
		// Sem recorte: o livro inteiro.
	default:
		h.handleServiceResponse(w, r, nil,
			apperror.NewValidationError("View inválida. Use 'sent' ou 'received'."), http.StatusOK)
		return
	}

	requests, err := h.Service.ListRequests(ctx, filter)
	h.handleServiceResponse(w, r, requests, err, http.StatusOK)
}

// DecisionHandler lida com a requisição POST /v1/requests/{id}/decision.
// @Summary Decide uma solicitação pendente
// @Description Aprova ou rejeita uma solicitação Pendente sobre um recurso do município do funcionário. Aprovar decrementa a quantidade do recurso atomicamente.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "ID da solicitação"
// @Param decision body domain.DecisionRequest true "Desfecho: approve ou reject"
// @Success 200 {object} domain.ExchangeRequest "Solicitação no estado terminal"
// @Failure 400 {object} domain.ErrorResponse "Desfecho inválido"
// @Failure 404 {object} domain.ErrorResponse "Solicitação não encontrada"
// @Failure 409 {object} domain.ErrorResponse "Solicitação já decidida ou disponibilidade insuficiente"
// @Security BearerAuth
// @Router /requests/{id}/decision [post]
func (h *Handler) DecisionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	decider, ok := requesterFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil,
			apperror.NewUnauthorizedError("Autenticação necessária para decidir solicitações."), http.StatusOK)
		return
	}

	// Caminho esperado: /v1/requests/{id}/decision
	rest := strings.TrimPrefix(r.URL.Path, "/v1/requests/")
	requestID := strings.TrimSuffix(rest, "/decision")
	if requestID == "" || requestID == rest || strings.Contains(requestID, "/") {
		h.handleServiceResponse(w, r, nil,
			apperror.NewValidationError("URL inválida. Use /v1/requests/{id}/decision."), http.StatusOK)
		return
	}

	var input domain.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.handleServiceResponse(w, r, nil,
			apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	decided, err := h.Service.Decide(ctx, decider, requestID, input.Outcome)
	h.handleServiceResponse(w, r, decided, err, http.StatusOK)
}
