package catalogservice

import (
	"context"
	"strings"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
)

// CatalogRepository define o contrato de persistência do catálogo de recursos.
type CatalogRepository interface {
	FindAll(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error)
	FindByID(ctx context.Context, id string) (domain.Resource, error)
	Municipalities(ctx context.Context) ([]string, error)
}

// Service encapsula a lógica de consulta do catálogo compartilhado.
type Service struct {
	repo   CatalogRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Catálogo.
func NewService(repo CatalogRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List retorna os recursos visíveis para o município do observador: a navegação
// mostra apenas recursos de OUTROS municípios. Os filtros compõem com AND.
func (s *Service) List(ctx context.Context, viewerMunicipality string, filter domain.ResourceFilter) ([]domain.Resource, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, apperror.NewValidationError(
			"Categoria inválida. Consulte as categorias disponíveis do catálogo.")
	}

	filter.TextQuery = strings.TrimSpace(filter.TextQuery)
	filter.ExcludeMunicipality = viewerMunicipality

	resources, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao listar recursos no repositório.", err)
		return nil, err
	}
	return resources, nil
}

// Get retorna um recurso pelo ID, sem o filtro de município do observador:
// o detalhe é acessível a qualquer funcionário autenticado.
func (s *Service) Get(ctx context.Context, id string) (domain.Resource, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Resource{}, apperror.NewValidationError("O ID do recurso é obrigatório.")
	}
	return s.repo.FindByID(ctx, id)
}

// Municipalities retorna os municípios com recursos cadastrados, em ordem alfabética.
func (s *Service) Municipalities(ctx context.Context) ([]string, error) {
	municipalities, err := s.repo.Municipalities(ctx)
	if err != nil {
		s.logger.Error("Falha ao listar municípios no repositório.", err)
		return nil, err
	}
	return municipalities, nil
}
