package exchangeservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gomuni/internal/domain"
	apperror "gomuni/internal/errors"
	"gomuni/internal/pkg/logger"
)

// CatalogRepository define o contrato que o motor de intercâmbio espera do catálogo.
type CatalogRepository interface {
	FindByID(ctx context.Context, id string) (domain.Resource, error)
}

// LedgerRepository define o contrato que o motor espera do livro de solicitações.
type LedgerRepository interface {
	HasPendingRequest(ctx context.Context, resourceID, municipality string) (bool, error)
	FindByID(ctx context.Context, id string) (domain.ExchangeRequest, error)
	FindAll(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error)
	Append(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeRequest, error)
	Transition(ctx context.Context, requestID string, newStatus domain.RequestStatus) (domain.ExchangeRequest, error)
	ApproveAndReserve(ctx context.Context, requestID string) (domain.ExchangeRequest, error)
}

// EventPublisher define o contrato de emissão das intenções de notificação.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ExchangeEvent) error
}

// Service é o motor do fluxo de intercâmbio: valida e executa as transições
// (submissão, aprovação, rejeição) contra o Catálogo e o Livro, preservando os
// invariantes de quantidade e de pendência única. Submit e Decide são seções
// críticas curtas, serializadas por recurso dentro do processo; entre
// processos, quem garante são as atualizações condicionais do repositório.
type Service struct {
	catalog   CatalogRepository
	ledger    LedgerRepository
	publisher EventPublisher
	logger    logger.Logger

	// locks serializa escritores por resource_id dentro do processo.
	locks sync.Map // map[string]*sync.Mutex
}

// NewService cria e retorna uma nova instância do Motor de Intercâmbio.
func NewService(catalog CatalogRepository, ledger LedgerRepository, publisher EventPublisher, logger logger.Logger) *Service {
	return &Service{
		catalog:   catalog,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

// lockResource trava o recurso para escrita e retorna a função de destravamento.
func (s *Service) lockResource(resourceID string) func() {
	value, _ := s.locks.LoadOrStore(resourceID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Submit valida e registra uma nova solicitação de empréstimo.
// As precondições são avaliadas nesta ordem, e a primeira falha vence:
//  1. o recurso deve existir;
//  2. a quantidade deve ser um inteiro positivo;
//  3. a quantidade não pode exceder a disponibilidade atual;
//  4. a justificativa não pode ser vazia;
//  5. não pode haver outra solicitação Pendente do mesmo município para o recurso.
//
// A quantidade do catálogo NÃO é decrementada na submissão; a reserva acontece
// apenas na aprovação.
func (s *Service) Submit(ctx context.Context, requester domain.Requester, input domain.SubmitRequest) (domain.ExchangeRequest, error) {
	s.logger.Debug("Iniciando submissão de solicitação no serviço.", map[string]interface{}{
		"resource_id":  input.ResourceID,
		"quantity":     input.Quantity,
		"municipality": requester.Municipality,
	})

	unlock := s.lockResource(input.ResourceID)
	defer unlock()

	// 1. Resolver o recurso no catálogo.
	resource, err := s.catalog.FindByID(ctx, input.ResourceID)
	if err != nil {
		// NotFoundError ou erro interno: propaga como veio do repositório.
		return domain.ExchangeRequest{}, err
	}

	// O catálogo de navegação já exclui o próprio município; revalidamos aqui
	// porque o handler recebe o resource_id cru.
	if resource.Municipality == requester.Municipality {
		return domain.ExchangeRequest{}, apperror.NewValidationError(
			"Não é possível solicitar um recurso do próprio município.")
	}

	// 2. Quantidade deve ser um inteiro positivo.
	if input.Quantity <= 0 {
		return domain.ExchangeRequest{}, apperror.NewInvalidQuantityError(input.Quantity)
	}

	// 3. Quantidade não pode exceder a disponibilidade atual.
	if input.Quantity > resource.Quantity {
		return domain.ExchangeRequest{}, apperror.NewQuantityExceedsAvailableError(
			resource.ID, input.Quantity, resource.Quantity)
	}

	// 4. Justificativa obrigatória (após remover espaços incidentais).
	if strings.TrimSpace(input.Justification) == "" {
		return domain.ExchangeRequest{}, apperror.NewMissingJustificationError(resource.ID)
	}

	// 5. Pendência única por recurso e município solicitante.
	hasPending, err := s.ledger.HasPendingRequest(ctx, resource.ID, requester.Municipality)
	if err != nil {
		return domain.ExchangeRequest{}, err
	}
	if hasPending {
		return domain.ExchangeRequest{}, apperror.NewDuplicateRequestError(resource.ID, requester.Municipality)
	}

	request := domain.ExchangeRequest{
		ID:                     uuid.NewString(),
		ResourceID:             resource.ID,
		RequestingMunicipality: requester.Municipality,
		RequesterID:            requester.EmployeeID,
		Quantity:               input.Quantity,
		Justification:          strings.TrimSpace(input.Justification),
		Status:                 domain.StatusPending,
		SubmittedAt:            time.Now().UTC(),
		ResourceName:           resource.Name,
		OwnerMunicipality:      resource.Municipality,
	}

	// O Append revalida a pendência única via índice (defesa em profundidade).
	created, err := s.ledger.Append(ctx, request)
	if err != nil {
		return domain.ExchangeRequest{}, err
	}
	created.ResourceName = resource.Name
	created.OwnerMunicipality = resource.Municipality

	s.emit(ctx, domain.EventRequestSubmitted, created)

	s.logger.Info("Solicitação submetida com sucesso.", map[string]interface{}{
		"request_id":  created.ID,
		"resource_id": created.ResourceID,
		"quantity":    created.Quantity,
	})
	return created, nil
}

// Decide aplica o desfecho terminal (aprovação ou rejeição) a uma solicitação
// Pendente. Aprovar transiciona o status e decrementa a quantidade do recurso
// como uma única unidade atômica; rejeitar não tem efeito no catálogo.
// Re-invocar Decide sobre uma solicitação já decidida falha com
// InvalidTransitionError e não produz efeito observável.
func (s *Service) Decide(ctx context.Context, decider domain.Requester, requestID string, outcome domain.DecisionOutcome) (domain.ExchangeRequest, error) {
	s.logger.Debug("Iniciando decisão de solicitação no serviço.", map[string]interface{}{
		"request_id":   requestID,
		"outcome":      string(outcome),
		"municipality": decider.Municipality,
	})

	if outcome != domain.OutcomeApprove && outcome != domain.OutcomeReject {
		return domain.ExchangeRequest{}, apperror.NewValidationError(
			"Desfecho inválido. Use 'approve' ou 'reject'.")
	}

	// Resolve a solicitação para validar o decisor e travar o recurso certo.
	request, err := s.ledger.FindByID(ctx, requestID)
	if err != nil {
		return domain.ExchangeRequest{}, err
	}

	// Quem decide é o município proprietário do recurso.
	if request.OwnerMunicipality != decider.Municipality {
		return domain.ExchangeRequest{}, apperror.NewValidationError(
			"Apenas o município proprietário do recurso pode decidir esta solicitação.")
	}

	if request.Status.IsTerminal() {
		return domain.ExchangeRequest{}, apperror.NewInvalidTransitionError(requestID, request.Status)
	}

	unlock := s.lockResource(request.ResourceID)
	defer unlock()

	var decided domain.ExchangeRequest
	var eventType domain.EventType

	switch outcome {
	case domain.OutcomeApprove:
		// Transição + reserva na mesma transação; o repositório desfaz ambas
		// se a disponibilidade não cobrir a quantidade (fail-fast).
		decided, err = s.ledger.ApproveAndReserve(ctx, requestID)
		eventType = domain.EventRequestApproved
	case domain.OutcomeReject:
		decided, err = s.ledger.Transition(ctx, requestID, domain.StatusRejected)
		eventType = domain.EventRequestRejected
	}
	if err != nil {
		return domain.ExchangeRequest{}, err
	}

	s.emit(ctx, eventType, decided)

	s.logger.Info("Solicitação decidida.", map[string]interface{}{
		"request_id": decided.ID,
		"status":     string(decided.Status),
	})
	return decided, nil
}

// ListRequests consulta o livro de solicitações. Leitura de snapshot,
// sem travas; reflete sempre o estado corrente de cada entrada.
func (s *Service) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.NewValidationError(
			"Status inválido. Use 'pending', 'approved' ou 'rejected'.")
	}

	requests, err := s.ledger.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao listar solicitações no repositório.", err)
		return nil, err
	}
	return requests, nil
}

// emit publica a intenção de notificação. Falha de publicação nunca falha a
// operação do fluxo: o estado já foi commitado; apenas registramos o problema.
func (s *Service) emit(ctx context.Context, eventType domain.EventType, req domain.ExchangeRequest) {
	event := domain.ExchangeEvent{
		Type:                   eventType,
		RequestID:              req.ID,
		ResourceID:             req.ResourceID,
		RequestingMunicipality: req.RequestingMunicipality,
		OwnerMunicipality:      req.OwnerMunicipality,
		Quantity:               req.Quantity,
		OccurredAt:             time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Falha ao publicar evento de intercâmbio.", map[string]interface{}{
			"type":       string(eventType),
			"request_id": req.ID,
			"error":      err.Error(),
		})
	}
}
