package reportservice

import (
	"context"

	"gomuni/internal/domain"
	"gomuni/internal/pkg/logger"
)

// CatalogRepository é a fatia do catálogo que o relatório consome.
type CatalogRepository interface {
	FindAll(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error)
}

// LedgerRepository é a fatia do livro de solicitações que o relatório consome.
type LedgerRepository interface {
	FindAll(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error)
}

// Service computa projeções agregadas sob demanda a partir de snapshots do
// catálogo e do livro. Nenhum agregado é persistido.
type Service struct {
	catalog CatalogRepository
	ledger  LedgerRepository
	logger  logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Relatórios.
func NewService(catalog CatalogRepository, ledger LedgerRepository, logger logger.Logger) *Service {
	return &Service{catalog: catalog, ledger: ledger, logger: logger}
}

// Summary computa o resumo gerencial: recursos por categoria, solicitações por
// status e a taxa de aprovação entre as decididas.
func (s *Service) Summary(ctx context.Context) (domain.ReportSummary, error) {
	resources, err := s.catalog.FindAll(ctx, domain.ResourceFilter{})
	if err != nil {
		s.logger.Error("Falha ao ler o catálogo para o relatório.", err)
		return domain.ReportSummary{}, err
	}

	requests, err := s.ledger.FindAll(ctx, domain.RequestFilter{})
	if err != nil {
		s.logger.Error("Falha ao ler o livro de solicitações para o relatório.", err)
		return domain.ReportSummary{}, err
	}

	summary := domain.ReportSummary{
		TotalResources:      len(resources),
		ResourcesByCategory: countByCategory(resources),
	}

	for _, req := range requests {
		switch req.Status {
		case domain.StatusPending:
			summary.RequestsByStatus.Pending++
		case domain.StatusApproved:
			summary.RequestsByStatus.Approved++
		case domain.StatusRejected:
			summary.RequestsByStatus.Rejected++
		}
	}

	summary.DecidedRequests = summary.RequestsByStatus.Approved + summary.RequestsByStatus.Rejected
	if summary.DecidedRequests > 0 {
		summary.ApprovalRate = float64(summary.RequestsByStatus.Approved) / float64(summary.DecidedRequests)
	}

	return summary, nil
}

// countByCategory produz a contagem na ordem fixa da enumeração, incluindo
// categorias zeradas, para estabilidade da resposta.
func countByCategory(resources []domain.Resource) []domain.CategoryCount {
	counts := make(map[domain.ResourceCategory]int, len(resources))
	for _, r := range resources {
		counts[r.Category]++
	}

	out := make([]domain.CategoryCount, 0, len(domain.Categories()))
	for _, category := range domain.Categories() {
		out = append(out, domain.CategoryCount{Category: category, Count: counts[category]})
	}
	return out
}
