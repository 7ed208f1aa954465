package catalogservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
)

// MockCatalogRepository simula o repositório de catálogo.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindAll(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Resource), args.Error(1)
}

func (m *MockCatalogRepository) FindByID(ctx context.Context, id string) (domain.Resource, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Resource), args.Error(1)
}

func (m *MockCatalogRepository) Municipalities(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(repo *MockCatalogRepository) *Service {
	return NewService(repo, logger.NewLogger("error"))
}

func TestList_ExcludesViewerMunicipality(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	expected := []domain.Resource{
		{ID: "res-1", Name: "Caminhão Basculante", Municipality: "Prefeitura de Niterói"},
	}

	// O serviço deve injetar o município do observador como exclusão.
	repo.On("FindAll", mock.Anything, domain.ResourceFilter{
		ExcludeMunicipality: "Prefeitura de Maricá",
	}).Return(expected, nil)

	got, err := svc.List(context.Background(), "Prefeitura de Maricá", domain.ResourceFilter{})

	require.NoError(t, err)
	assert.Equal(t, expected, got)
	repo.AssertExpectations(t)
}

func TestList_TrimsTextQuery(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	repo.On("FindAll", mock.Anything, domain.ResourceFilter{
		TextQuery:           "guindaste",
		Category:            domain.CategoryMachinery,
		ExcludeMunicipality: "Prefeitura de Niterói",
	}).Return([]domain.Resource{}, nil)

	_, err := svc.List(context.Background(), "Prefeitura de Niterói", domain.ResourceFilter{
		TextQuery: "  guindaste  ",
		Category:  domain.CategoryMachinery,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestList_InvalidCategory(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	_, err := svc.List(context.Background(), "Prefeitura de Niterói", domain.ResourceFilter{
		Category: domain.ResourceCategory("naves_espaciais"),
	})

	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
	repo.AssertNotCalled(t, "FindAll")
}

func TestGet_EmptyID(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	_, err := svc.Get(context.Background(), "   ")

	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
	repo.AssertNotCalled(t, "FindByID")
}

func TestGet_NotFoundPropagates(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	repo.On("FindByID", mock.Anything, "res-x").
		Return(domain.Resource{}, apperror.NewNotFoundError("res-x", "Recurso não encontrado no catálogo."))

	_, err := svc.Get(context.Background(), "res-x")

	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "res-x", notFound.ID)
}

func TestMunicipalities(t *testing.T) {
	repo := new(MockCatalogRepository)
	svc := newTestService(repo)

	expected := []string{"Prefeitura de Maricá", "Prefeitura de Niterói"}
	repo.On("Municipalities", mock.Anything).Return(expected, nil)

	got, err := svc.Municipalities(context.Background())

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
