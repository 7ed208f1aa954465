package exchangeservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
)

// fakeStore é um dublê com estado que implementa CatalogRepository,
// LedgerRepository e EventPublisher em memória, reproduzindo a semântica dos
// repositórios SQL (transição condicional, decremento atômico). Com estado
// real dá para exercitar o ciclo de vida completo: submeter, decidir,
// re-submeter.
type fakeStore struct {
	resources map[string]domain.Resource
	requests  map[string]domain.ExchangeRequest
	order     []string
	events    []domain.ExchangeEvent
}

func newFakeStore(resources ...domain.Resource) *fakeStore {
	s := &fakeStore{
		resources: make(map[string]domain.Resource),
		requests:  make(map[string]domain.ExchangeRequest),
	}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (domain.Resource, error) {
	r, ok := s.resources[id]
	if !ok {
		return domain.Resource{}, apperror.NewNotFoundError(id, "Recurso não encontrado no catálogo.")
	}
	return r, nil
}

func (s *fakeStore) HasPendingRequest(ctx context.Context, resourceID, municipality string) (bool, error) {
	for _, req := range s.requests {
		if req.ResourceID == resourceID && req.RequestingMunicipality == municipality &&
			req.Status == domain.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) findRequestByID(id string) (domain.ExchangeRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return domain.ExchangeRequest{}, apperror.NewNotFoundError(id, "Solicitação não encontrada no livro.")
	}
	if r, ok := s.resources[req.ResourceID]; ok {
		req.ResourceName = r.Name
		req.OwnerMunicipality = r.Municipality
	}
	return req, nil
}

func (s *fakeStore) FindByIDRequest(ctx context.Context, id string) (domain.ExchangeRequest, error) {
	return s.findRequestByID(id)
}

func (s *fakeStore) FindAll(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error) {
	out := make([]domain.ExchangeRequest, 0, len(s.order))
	for _, id := range s.order {
		req, _ := s.findRequestByID(id)
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.RequestingMunicipality != "" && req.RequestingMunicipality != filter.RequestingMunicipality {
			continue
		}
		if filter.OwnerMunicipality != "" && req.OwnerMunicipality != filter.OwnerMunicipality {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *fakeStore) Append(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeRequest, error) {
	s.requests[req.ID] = req
	s.order = append(s.order, req.ID)
	return req, nil
}

func (s *fakeStore) Transition(ctx context.Context, requestID string, newStatus domain.RequestStatus) (domain.ExchangeRequest, error) {
	req, err := s.findRequestByID(requestID)
	if err != nil {
		return domain.ExchangeRequest{}, err
	}
	if req.Status != domain.StatusPending {
		return domain.ExchangeRequest{}, apperror.NewInvalidTransitionError(requestID, req.Status)
	}
	req.Status = newStatus
	s.requests[requestID] = req
	return req, nil
}

func (s *fakeStore) ApproveAndReserve(ctx context.Context, requestID string) (domain.ExchangeRequest, error) {
	req, err := s.findRequestByID(requestID)
	if err != nil {
		return domain.ExchangeRequest{}, err
	}
	if req.Status != domain.StatusPending {
		return domain.ExchangeRequest{}, apperror.NewInvalidTransitionError(requestID, req.Status)
	}
	resource := s.resources[req.ResourceID]
	if resource.Quantity < req.Quantity {
		// Nada muda: a solicitação fica Pendente e o catálogo intacto.
		return domain.ExchangeRequest{}, apperror.NewQuantityExceedsAvailableError(
			req.ResourceID, req.Quantity, resource.Quantity)
	}
	resource.Quantity -= req.Quantity
	s.resources[req.ResourceID] = resource
	req.Status = domain.StatusApproved
	s.requests[requestID] = req
	return req, nil
}

func (s *fakeStore) Publish(ctx context.Context, event domain.ExchangeEvent) error {
	s.events = append(s.events, event)
	return nil
}

// ledgerAdapter resolve a colisão de nome FindByID entre catálogo e livro.
type ledgerAdapter struct{ *fakeStore }

func (a ledgerAdapter) FindByID(ctx context.Context, id string) (domain.ExchangeRequest, error) {
	return a.fakeStore.FindByIDRequest(ctx, id)
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, ledgerAdapter{store}, store, logger.NewLogger("error"))
}

var (
	niteroi    = domain.Requester{EmployeeID: "emp-1", Municipality: "Prefeitura de Niterói"}
	saoGoncalo = domain.Requester{EmployeeID: "emp-2", Municipality: "Prefeitura de São Gonçalo"}
	marica     = domain.Requester{EmployeeID: "emp-3", Municipality: "Prefeitura de Maricá"}
)

func excavator(quantity int) domain.Resource {
	return domain.Resource{
		ID:           "res-escavadeira",
		Name:         "Escavadeira Hidráulica",
		Category:     domain.CategoryMachinery,
		Quantity:     quantity,
		Unit:         "Unidades",
		Municipality: niteroi.Municipality,
	}
}

func TestSubmit_Success(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)

	created, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      2,
		Justification: "Obra emergencial de contenção de encosta.",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, saoGoncalo.Municipality, created.RequestingMunicipality)
	assert.Equal(t, saoGoncalo.EmployeeID, created.RequesterID)
	assert.False(t, created.SubmittedAt.IsZero())

	// A submissão NÃO decrementa o catálogo.
	assert.Equal(t, 3, store.resources["res-escavadeira"].Quantity)

	require.Len(t, store.events, 1)
	assert.Equal(t, domain.EventRequestSubmitted, store.events[0].Type)
}

func TestSubmit_ResourceNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-inexistente",
		Quantity:      1,
		Justification: "Qualquer.",
	})

	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "res-inexistente", notFound.ID)
}

func TestSubmit_QuantityMustBePositive(t *testing.T) {
	for _, quantity := range []int{0, -1, -50} {
		store := newFakeStore(excavator(3))
		svc := newTestService(store)

		_, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
			ResourceID:    "res-escavadeira",
			Quantity:      quantity,
			Justification: "Justificativa presente.",
		})

		var invalid *apperror.InvalidQuantityError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, quantity, invalid.Quantity)
		assert.Empty(t, store.order, "nenhuma solicitação deve ser registrada")
	}
}

func TestSubmit_QuantityExceedsAvailable(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      4,
		Justification: "Justificativa presente.",
	})

	var exceeds *apperror.QuantityExceedsAvailableError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 4, exceeds.Requested)
	assert.Equal(t, 3, exceeds.Available)
}

func TestSubmit_MissingJustification(t *testing.T) {
	for _, justification := range []string{"", "   ", "\t\n"} {
		store := newFakeStore(excavator(3))
		svc := newTestService(store)

		_, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
			ResourceID:    "res-escavadeira",
			Quantity:      1,
			Justification: justification,
		})

		var missing *apperror.MissingJustificationError
		require.ErrorAs(t, err, &missing)
	}
}

// A ordem das checagens importa: quantidade excedente E justificativa vazia
// juntas reportam o erro de quantidade, que vem primeiro.
func TestSubmit_CheckOrder_ExceedsBeforeJustification(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      10,
		Justification: "",
	})

	var exceeds *apperror.QuantityExceedsAvailableError
	require.ErrorAs(t, err, &exceeds)
}

func TestSubmit_OwnMunicipality(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)

	_, err := svc.Submit(context.Background(), niteroi, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Uso interno.",
	})

	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSubmit_DuplicatePending(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Primeira solicitação.",
	})
	require.NoError(t, err)

	// Segunda pendente do MESMO município: bloqueada.
	_, err = svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      2,
		Justification: "Segunda solicitação.",
	})
	var duplicate *apperror.DuplicateRequestError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, saoGoncalo.Municipality, duplicate.Municipality)

	// Outro município pode ter a própria pendência para o mesmo recurso.
	_, err = svc.Submit(ctx, marica, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Solicitação de Maricá.",
	})
	assert.NoError(t, err)
}

func TestSubmit_AllowedAgainAfterDecision(t *testing.T) {
	store := newFakeStore(excavator(5))
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Primeira rodada.",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, niteroi, first.ID, domain.OutcomeReject)
	require.NoError(t, err)

	// Decidida (rejeitada), a pendência anterior não bloqueia mais.
	_, err = svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Segunda rodada.",
	})
	assert.NoError(t, err)
}

func TestDecide_ApproveDecrementsQuantity(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      2,
		Justification: "Obra de drenagem.",
	})
	require.NoError(t, err)

	decided, err := svc.Decide(ctx, niteroi, created.ID, domain.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, decided.Status)
	assert.Equal(t, 1, store.resources["res-escavadeira"].Quantity)

	require.Len(t, store.events, 2)
	assert.Equal(t, domain.EventRequestApproved, store.events[1].Type)
}

func TestDecide_RejectLeavesQuantityIntact(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      2,
		Justification: "Obra de drenagem.",
	})
	require.NoError(t, err)

	decided, err := svc.Decide(ctx, niteroi, created.ID, domain.OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, decided.Status)
	assert.Equal(t, 3, store.resources["res-escavadeira"].Quantity)

	require.Len(t, store.events, 2)
	assert.Equal(t, domain.EventRequestRejected, store.events[1].Type)
}

func TestDecide_RequestNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(excavator(3)))

	_, err := svc.Decide(context.Background(), niteroi, "req-fantasma", domain.OutcomeApprove)

	var notFound *apperror.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDecide_InvalidOutcome(t *testing.T) {
	svc := newTestService(newFakeStore(excavator(3)))

	_, err := svc.Decide(context.Background(), niteroi, "req-1", domain.DecisionOutcome("maybe"))

	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDecide_OnlyOwnerMunicipality(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Obra local.",
	})
	require.NoError(t, err)

	// Maricá não é dona do recurso: não decide.
	_, err = svc.Decide(ctx, marica, created.ID, domain.OutcomeApprove)
	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)

	got, findErr := store.FindByIDRequest(ctx, created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestDecide_TerminalIsImmutable(t *testing.T) {
	store := newFakeStore(excavator(3))
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Obra local.",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, niteroi, created.ID, domain.OutcomeApprove)
	require.NoError(t, err)

	// Re-decidir falha das duas formas e nada muda.
	for _, outcome := range []domain.DecisionOutcome{domain.OutcomeApprove, domain.OutcomeReject} {
		_, err = svc.Decide(ctx, niteroi, created.ID, outcome)
		var invalid *apperror.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, domain.StatusApproved, invalid.Current)
	}

	got, findErr := store.FindByIDRequest(ctx, created.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, 2, store.resources["res-escavadeira"].Quantity)
}

// Cenário da escavadeira única: aprovar zera a disponibilidade; uma nova
// solicitação pode ser submetida? Não: a checagem de disponibilidade da
// submissão barra quantidade 1 contra estoque 0.
func TestLifecycle_SingleExcavator(t *testing.T) {
	store := newFakeStore(excavator(1))
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Abertura de vala.",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, niteroi, created.ID, domain.OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, 0, store.resources["res-escavadeira"].Quantity)

	_, err = svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Nova tentativa.",
	})
	var exceeds *apperror.QuantityExceedsAvailableError
	require.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 0, exceeds.Available)
}

// Duas pendentes de municípios distintos sobre o mesmo estoque: a primeira
// aprovação consome, a segunda falha e a solicitação permanece Pendente
// (fail-fast, sem aprovação parcial).
func TestLifecycle_CompetingApprovals(t *testing.T) {
	store := newFakeStore(excavator(2))
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      2,
		Justification: "Obra grande.",
	})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, marica, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Obra pequena.",
	})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, niteroi, first.ID, domain.OutcomeApprove)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, niteroi, second.ID, domain.OutcomeApprove)
	var exceeds *apperror.QuantityExceedsAvailableError
	require.ErrorAs(t, err, &exceeds)

	got, findErr := store.FindByIDRequest(ctx, second.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.StatusPending, got.Status, "a solicitação perdedora continua pendente")

	// O proprietário ainda pode rejeitá-la depois.
	decided, err := svc.Decide(ctx, niteroi, second.ID, domain.OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, decided.Status)
}

func TestListRequests_Filters(t *testing.T) {
	store := newFakeStore(excavator(5))
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Submit(ctx, saoGoncalo, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Primeira.",
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, marica, domain.SubmitRequest{
		ResourceID:    "res-escavadeira",
		Quantity:      1,
		Justification: "Segunda.",
	})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, niteroi, first.ID, domain.OutcomeApprove)
	require.NoError(t, err)

	all, err := svc.ListRequests(ctx, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.ListRequests(ctx, domain.RequestFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, marica.Municipality, pending[0].RequestingMunicipality)

	mine, err := svc.ListRequests(ctx, domain.RequestFilter{RequestingMunicipality: saoGoncalo.Municipality})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.StatusApproved, mine[0].Status)

	_, err = svc.ListRequests(ctx, domain.RequestFilter{Status: domain.RequestStatus("limbo")})
	var validation *apperror.ValidationError
	require.ErrorAs(t, err, &validation)
}
