package catalog

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

// CatalogService define o contrato que o Handler espera da camada de Serviço.
type CatalogService interface {
	List(ctx context.Context, viewerMunicipality string, filter domain.ResourceFilter) ([]domain.Resource, error)
	Get(ctx context.Context, id string) (domain.Resource, error)
	Municipalities(ctx context.Context) ([]string, error)
}

// Handler agrupa todos os métodos de Handler do catálogo.
type Handler struct {
	Service CatalogService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc CatalogService, log logger.Logger) *Handler {
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

// ListResourcesHandler lida com a requisição GET /v1/resources.
// @Summary Lista os recursos de outros municípios
// @Description Retorna o catálogo compartilhado excluindo os recursos do município do funcionário autenticado. Filtros compõem com AND.
// @Tags resources
// @Produce json
// @Param q query string false "Substring do nome (sem diferenciar maiúsculas)"
// @Param category query string false "Categoria exata (machinery, vehicles, equipment, tools, construction_materials, other)"
// @Param municipality query string false "Município proprietário exato"
// @Success 200 {array} domain.Resource "Recursos visíveis na ordem de cadastro"
// @Failure 400 {object} domain.ErrorResponse "Categoria inválida"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Security BearerAuth
// @Router /resources [get]
func (h *Handler) ListResourcesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	claims, ok := middleware.GetUserClaimsFromContext(ctx)
	if !ok {
		h.handleServiceResponse(w, r, nil,
			apperror.NewUnauthorizedError("Autenticação necessária para navegar no catálogo."), http.StatusOK)
		return
	}

	query := r.URL.Query()
	filter := domain.ResourceFilter{
		TextQuery:    query.Get("q"),
		Category:     domain.ResourceCategory(query.Get("category")),
		Municipality: query.Get("municipality"),
	}

	resources, err := h.Service.List(ctx, claims.Municipality, filter)
	h.handleServiceResponse(w, r, resources, err, http.StatusOK)
}

// GetResourceByIDHandler lida com a requisição GET /v1/resources/{id}.
// @Summary Obtém um recurso por ID
// @Tags resources
// @Produce json
// @Param id path string true "ID do recurso"
// @Success 200 {object} domain.Resource "Recurso encontrado"
// @Failure 404 {object} domain.ErrorResponse "Recurso não encontrado"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Security BearerAuth
// @Router /resources/{id} [get]
func (h *Handler) GetResourceByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/resources/")
	if id == "" || strings.Contains(id, "/") {
		h.handleServiceResponse(w, r, nil,
			apperror.NewValidationError("O ID do recurso é obrigatório na URL."), http.StatusOK)
		return
	}

	resource, err := h.Service.Get(r.Context(), id)
	h.handleServiceResponse(w, r, resource, err, http.StatusOK)
}

// ListMunicipalitiesHandler lida com a requisição GET /v1/municipalities.
// @Summary Lista os municípios com recursos cadastrados
// @Tags resources
// @Produce json
// @Success 200 {array} string "Municípios em ordem alfabética"
// @Failure 401 {object} domain.ErrorResponse "Token ausente ou inválido"
// @Security BearerAuth
// @Router /municipalities [get]
func (h *Handler) ListMunicipalitiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	municipalities, err := h.Service.Municipalities(r.Context())
	h.handleServiceResponse(w, r, municipalities, err, http.StatusOK)
}
