package reportservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gomuni/internal/domain"
	"gomuni/internal/pkg/logger"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindAll(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Resource), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) FindAll(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.ExchangeRequest), args.Error(1)
}

func TestSummary(t *testing.T) {
	catalog := new(MockCatalogRepository)
	ledger := new(MockLedgerRepository)
	svc := NewService(catalog, ledger, logger.NewLogger("error"))

	catalog.On("FindAll", mock.Anything, domain.ResourceFilter{}).Return([]domain.Resource{
		{ID: "r1", Category: domain.CategoryMachinery},
		{ID: "r2", Category: domain.CategoryMachinery},
		{ID: "r3", Category: domain.CategoryVehicles},
	}, nil)

	ledger.On("FindAll", mock.Anything, domain.RequestFilter{}).Return([]domain.ExchangeRequest{
		{ID: "q1", Status: domain.StatusPending},
		{ID: "q2", Status: domain.StatusApproved},
		{ID: "q3", Status: domain.StatusApproved},
		{ID: "q4", Status: domain.StatusRejected},
	}, nil)

	summary, err := svc.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalResources)
	assert.Equal(t, domain.StatusCounts{Pending: 1, Approved: 2, Rejected: 1}, summary.RequestsByStatus)
	assert.Equal(t, 3, summary.DecidedRequests)
	assert.InDelta(t, 2.0/3.0, summary.ApprovalRate, 1e-9)

	// Todas as categorias aparecem, inclusive as zeradas, na ordem da enumeração.
	require.Len(t, summary.ResourcesByCategory, len(domain.Categories()))
	assert.Equal(t, domain.CategoryCount{Category: domain.CategoryMachinery, Count: 2}, summary.ResourcesByCategory[0])
	assert.Equal(t, domain.CategoryCount{Category: domain.CategoryVehicles, Count: 1}, summary.ResourcesByCategory[1])
	assert.Equal(t, domain.CategoryCount{Category: domain.CategoryOther, Count: 0}, summary.ResourcesByCategory[5])
}

func TestSummary_EmptyLedger(t *testing.T) {
	catalog := new(MockCatalogRepository)
	ledger := new(MockLedgerRepository)
	svc := NewService(catalog, ledger, logger.NewLogger("error"))

	catalog.On("FindAll", mock.Anything, domain.ResourceFilter{}).Return([]domain.Resource{}, nil)
	ledger.On("FindAll", mock.Anything, domain.RequestFilter{}).Return([]domain.ExchangeRequest{}, nil)

	summary, err := svc.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalResources)
	assert.Equal(t, 0, summary.DecidedRequests)
	assert.Zero(t, summary.ApprovalRate, "sem decisões a taxa é zero, não NaN")
}
