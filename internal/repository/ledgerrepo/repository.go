package ledgerrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"gomuni/internal/domain"
	"gomuni/internal/errors"
	"gomuni/internal/pkg/cache"
	"gomuni/internal/pkg/logger"
)

// uniqueViolation é o código de erro do PostgreSQL para violação de índice único.
const uniqueViolation = "23505"

const resourceCacheKeyPrefix = "resource:"

// LedgerRepository implementa o livro de solicitações de intercâmbio:
// append-mostly, cada entrada sofre no máximo uma mutação (a decisão).
// É o único caminho de mutação de ExchangeRequest.status e, via aprovação,
// de Resource.quantity.
type LedgerRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLedgerRepository cria e retorna uma nova instância do Repositório do Livro.
func NewLedgerRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *LedgerRepository {
	return &LedgerRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const selectRequestColumns = `
        r.id, r.resource_id, r.requesting_municipality, r.requester_id, r.quantity,
        r.justification, r.status, r.submitted_at, r.decided_at,
        res.name, res.municipality`

func scanRequest(scanner interface{ Scan(...interface{}) error }) (domain.ExchangeRequest, error) {
	var req domain.ExchangeRequest
	err := scanner.Scan(
		&req.ID, &req.ResourceID, &req.RequestingMunicipality, &req.RequesterID, &req.Quantity,
		&req.Justification, &req.Status, &req.SubmittedAt, &req.DecidedAt,
		&req.ResourceName, &req.OwnerMunicipality,
	)
	return req, err
}

// HasPendingRequest informa se já existe uma solicitação Pendente do município
// para o recurso.
func (r *LedgerRepository) HasPendingRequest(ctx context.Context, resourceID, municipality string) (bool, error) {
	r.logger.Debug("Iniciando HasPendingRequest no repositório.", map[string]interface{}{
		"resource_id":  resourceID,
		"municipality": municipality,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT EXISTS (
            SELECT 1 FROM exchange_requests
            WHERE resource_id = $1 AND requesting_municipality = $2 AND status = $3
        )`

	var exists bool
	err := r.DB.QueryRowContext(ctxTimeout, query, resourceID, municipality, string(domain.StatusPending)).Scan(&exists)
	if err != nil {
		r.logger.Error("Falha ao verificar solicitação pendente no DB.", err)
		return false, errors.NewDBError("Falha ao verificar solicitação pendente", err)
	}

	return exists, nil
}

// FindByID busca uma solicitação pelo ID, com os campos de junção populados.
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (domain.ExchangeRequest, error) {
	r.logger.Debug("Iniciando FindByID no repositório do livro.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + selectRequestColumns + `
        FROM exchange_requests r
        JOIN resources res ON res.id = r.resource_id
        WHERE r.id = $1`

	req, err := scanRequest(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		r.logger.Info("Solicitação não encontrada.", map[string]interface{}{"id": id})
		return domain.ExchangeRequest{}, errors.NewNotFoundError(id, fmt.Sprintf("Solicitação com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar solicitação no DB.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao buscar solicitação", err)
	}

	return req, nil
}

// FindAll busca solicitações aplicando o filtro, ordenadas por submitted_at
// ascendente. A consulta lê o estado corrente: uma entrada decidida nunca
// aparece em uma listagem de pendentes.
func (r *LedgerRepository) FindAll(ctx context.Context, filter domain.RequestFilter) ([]domain.ExchangeRequest, error) {
	r.logger.Debug("Iniciando FindAll no repositório do livro.", map[string]interface{}{
		"status":                  string(filter.Status),
		"requesting_municipality": filter.RequestingMunicipality,
		"owner_municipality":      filter.OwnerMunicipality,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + selectRequestColumns + `
        FROM exchange_requests r
        JOIN resources res ON res.id = r.resource_id
        WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND r.status = $` + strconv.Itoa(len(args))
	}
	if filter.RequestingMunicipality != "" {
		args = append(args, filter.RequestingMunicipality)
		query += ` AND r.requesting_municipality = $` + strconv.Itoa(len(args))
	}
	if filter.OwnerMunicipality != "" {
		args = append(args, filter.OwnerMunicipality)
		query += ` AND res.municipality = $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY r.submitted_at ASC, r.id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar FindAll no livro.", err)
		return nil, errors.NewDBError("Falha ao buscar solicitações", err)
	}
	defer rows.Close()

	var requests []domain.ExchangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear solicitação na iteração de FindAll.", err)
			return nil, errors.NewDBError("Falha ao mapear solicitações do DB", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de solicitações.", err)
		return nil, errors.NewDBError("Erro após iteração de solicitações", err)
	}

	r.logger.Info("FindAll concluído no livro.", map[string]interface{}{"total_requests": len(requests)})
	return requests, nil
}

// Append insere uma nova solicitação no livro. O índice único parcial sobre
// (resource_id, requesting_municipality) WHERE status = 'pending' revalida o
// invariante de solicitação única pendente mesmo sob chamadores concorrentes;
// o serviço já checou HasPendingRequest, mas a última palavra é do índice.
func (r *LedgerRepository) Append(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeRequest, error) {
	r.logger.Debug("Iniciando Append no repositório do livro.", map[string]interface{}{
		"id":          req.ID,
		"resource_id": req.ResourceID,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        INSERT INTO exchange_requests
            (id, resource_id, requesting_municipality, requester_id, quantity, justification, status, submitted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		req.ID, req.ResourceID, req.RequestingMunicipality, req.RequesterID,
		req.Quantity, req.Justification, string(req.Status), req.SubmittedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			r.logger.Warn("Append rejeitado pelo índice de pendência única.", map[string]interface{}{
				"resource_id":  req.ResourceID,
				"municipality": req.RequestingMunicipality,
			})
			return domain.ExchangeRequest{}, errors.NewDuplicateRequestError(req.ResourceID, req.RequestingMunicipality)
		}
		r.logger.Error("Falha ao inserir solicitação no DB.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao registrar solicitação", err)
	}

	r.logger.Info("Solicitação registrada no livro.", map[string]interface{}{"id": req.ID, "resource_id": req.ResourceID})
	return req, nil
}

// Transition aplica uma transição de estado condicionada a status = Pending.
// Zero linhas afetadas significa ou ID ausente ou entrada já decidida; a
// consulta de diagnóstico distingue os dois casos.
func (r *LedgerRepository) Transition(ctx context.Context, requestID string, newStatus domain.RequestStatus) (domain.ExchangeRequest, error) {
	r.logger.Debug("Iniciando Transition no repositório do livro.", map[string]interface{}{
		"id":         requestID,
		"new_status": string(newStatus),
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE exchange_requests
        SET status = $1, decided_at = $2
        WHERE id = $3 AND status = $4`

	result, err := r.DB.ExecContext(ctxTimeout, query,
		string(newStatus), time.Now().UTC(), requestID, string(domain.StatusPending),
	)
	if err != nil {
		r.logger.Error("Falha ao transicionar solicitação no DB.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao transicionar solicitação", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Falha ao verificar linhas afetadas após Transition.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}

	if rowsAffected == 0 {
		return domain.ExchangeRequest{}, r.diagnoseFailedTransition(ctxTimeout, requestID)
	}

	return r.FindByID(ctx, requestID)
}

// ApproveAndReserve aprova a solicitação e reserva a quantidade no catálogo
// como uma única unidade atômica: a transição de status e o decremento
// condicional acontecem na mesma transação, e qualquer falha desfaz ambos.
// Aplicação parcial (status sem decremento, ou vice-versa) é estruturalmente
// impossível aqui.
func (r *LedgerRepository) ApproveAndReserve(ctx context.Context, requestID string) (domain.ExchangeRequest, error) {
	r.logger.Debug("Iniciando ApproveAndReserve no repositório do livro.", map[string]interface{}{"id": requestID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de aprovação.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	// 1. Travar a solicitação e obter recurso/quantidade. FOR UPDATE serializa
	//    decisões concorrentes sobre a mesma entrada.
	var (
		resourceID string
		quantity   int
		status     domain.RequestStatus
	)
	querySelect := `
        SELECT resource_id, quantity, status
        FROM exchange_requests
        WHERE id = $1
        FOR UPDATE`

	err = tx.QueryRowContext(ctxTimeout, querySelect, requestID).Scan(&resourceID, &quantity, &status)
	if err == sql.ErrNoRows {
		r.logger.Info("Solicitação não encontrada para aprovação.", map[string]interface{}{"id": requestID})
		return domain.ExchangeRequest{}, errors.NewNotFoundError(requestID, fmt.Sprintf("Solicitação com ID %s não encontrada.", requestID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar solicitação para aprovação.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao buscar solicitação para aprovação", err)
	}

	if status != domain.StatusPending {
		r.logger.Warn("Tentativa de aprovar solicitação já decidida.", map[string]interface{}{
			"id":     requestID,
			"status": string(status),
		})
		return domain.ExchangeRequest{}, errors.NewInvalidTransitionError(requestID, status)
	}

	// 2. Transicionar o status.
	queryUpdate := `
        UPDATE exchange_requests
        SET status = $1, decided_at = $2
        WHERE id = $3 AND status = $4`

	result, err := tx.ExecContext(ctxTimeout, queryUpdate,
		string(domain.StatusApproved), time.Now().UTC(), requestID, string(domain.StatusPending),
	)
	if err != nil {
		r.logger.Error("Falha ao aprovar solicitação no DB.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao aprovar solicitação", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// A linha está travada por FOR UPDATE, então isso não deve acontecer;
		// mantemos a checagem pela mesma disciplina do decremento abaixo.
		return domain.ExchangeRequest{}, errors.NewInvalidTransitionError(requestID, status)
	}

	// 3. Reservar a quantidade: decremento condicional. Zero linhas afetadas
	//    significa que outras aprovações já consumiram a disponibilidade desde
	//    a submissão; a transação inteira é desfeita e a solicitação permanece
	//    Pendente (fail-fast, sem fila).
	queryReserve := `
        UPDATE resources
        SET quantity = quantity - $1, updated_at = $2
        WHERE id = $3 AND quantity >= $1`

	result, err = tx.ExecContext(ctxTimeout, queryReserve, quantity, time.Now().UTC(), resourceID)
	if err != nil {
		r.logger.Error("Falha ao reservar quantidade no catálogo.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao reservar quantidade", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Falha ao verificar linhas afetadas após reserva.", err)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}

	if rowsAffected == 0 {
		var available int
		if scanErr := tx.QueryRowContext(ctxTimeout,
			`SELECT quantity FROM resources WHERE id = $1`, resourceID,
		).Scan(&available); scanErr != nil {
			available = 0
		}
		r.logger.Warn("Aprovação recusada por disponibilidade insuficiente.", map[string]interface{}{
			"request_id":  requestID,
			"resource_id": resourceID,
			"requested":   quantity,
			"available":   available,
		})
		return domain.ExchangeRequest{}, errors.NewQuantityExceedsAvailableError(resourceID, quantity, available)
	}

	// 4. Commitar a transação.
	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de aprovação.", commitErr)
		return domain.ExchangeRequest{}, errors.NewDBError("Falha ao commitar transação", commitErr)
	}

	// O recurso mudou de quantidade: invalida a entrada de cache do catálogo.
	if cacheErr := r.Cache.Delete(ctx, resourceCacheKeyPrefix+resourceID); cacheErr != nil {
		r.logger.Warn("Falha ao invalidar cache do recurso após aprovação.", map[string]interface{}{
			"resource_id": resourceID,
			"error":       cacheErr.Error(),
		})
	}

	r.logger.Info("Solicitação aprovada e quantidade reservada.", map[string]interface{}{
		"request_id":  requestID,
		"resource_id": resourceID,
		"quantity":    quantity,
	})
	return r.FindByID(ctx, requestID)
}

// diagnoseFailedTransition distingue ID ausente de entrada já decidida.
func (r *LedgerRepository) diagnoseFailedTransition(ctx context.Context, requestID string) error {
	var current domain.RequestStatus
	err := r.DB.QueryRowContext(ctx,
		`SELECT status FROM exchange_requests WHERE id = $1`, requestID,
	).Scan(&current)

	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(requestID, fmt.Sprintf("Solicitação com ID %s não encontrada.", requestID))
	}
	if err != nil {
		return errors.NewDBError("Falha ao diagnosticar transição", err)
	}
	return errors.NewInvalidTransitionError(requestID, current)
}
