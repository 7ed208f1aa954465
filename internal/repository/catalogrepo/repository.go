package catalogrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gomuni/internal/domain"
	"gomuni/internal/errors"
	"gomuni/internal/pkg/cache"
	"gomuni/internal/pkg/logger"
)

const resourceCacheKeyPrefix = "resource:"

// CatalogRepository implementa o acesso a dados do catálogo de recursos.
// O catálogo é read-mostly: a única mutação é o decremento de quantidade,
// que pertence ao repositório do livro de solicitações (aprovação atômica).
type CatalogRepository struct {
	DB           *sql.DB
	Cache        cache.Client
	DBTimeout    time.Duration
	CacheTimeout time.Duration
	logger       logger.Logger
}

// NewCatalogRepository cria e retorna uma nova instância do Repositório de Catálogo.
func NewCatalogRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTimeout time.Duration, logger logger.Logger) *CatalogRepository {
	return &CatalogRepository{
		DB:           db,
		Cache:        cacheClient,
		DBTimeout:    dbTimeout,
		CacheTimeout: cacheTimeout,
		logger:       logger,
	}
}

// FindAll busca os recursos do catálogo aplicando o filtro.
// Todos os critérios compõem com AND; a ordem é a de inserção no catálogo
// (created_at com desempate por id, para não reordenar entre recargas).
func (r *CatalogRepository) FindAll(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	r.logger.Debug("Iniciando FindAll no repositório de catálogo.", map[string]interface{}{
		"text_query":   filter.TextQuery,
		"category":     string(filter.Category),
		"municipality": filter.Municipality,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, name, category, quantity, unit, municipality, location_hint, created_at, updated_at
        FROM resources
        WHERE 1=1`
	var args []interface{}

	if filter.TextQuery != "" {
		args = append(args, filter.TextQuery)
		query += ` AND name ILIKE '%' || $` + strconv.Itoa(len(args)) + ` || '%'`
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filter.Municipality != "" {
		args = append(args, filter.Municipality)
		query += ` AND municipality = $` + strconv.Itoa(len(args))
	}
	if filter.ExcludeMunicipality != "" {
		args = append(args, filter.ExcludeMunicipality)
		query += ` AND municipality <> $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY created_at, id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao executar FindAll no catálogo.", err)
		return nil, errors.NewDBError("Falha ao buscar recursos", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		err := rows.Scan(
			&res.ID, &res.Name, &res.Category, &res.Quantity, &res.Unit,
			&res.Municipality, &res.LocationHint, &res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Falha ao mapear recurso na iteração de FindAll.", err)
			return nil, errors.NewDBError("Falha ao mapear recursos do DB", err)
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de recursos.", err)
		return nil, errors.NewDBError("Erro após iteração de recursos", err)
	}

	r.logger.Info("FindAll concluído no catálogo.", map[string]interface{}{"total_resources": len(resources)})
	return resources, nil
}

// FindByID busca um recurso pelo ID, com leitura read-through do cache.
// O TTL é curto e a aprovação invalida a chave, então o valor em cache nunca
// fica muito atrás do DB; de toda forma, toda mutação revalida contra o DB.
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (domain.Resource, error) {
	r.logger.Debug("Iniciando FindByID no repositório de catálogo.", map[string]interface{}{"id": id})

	cacheKey := resourceCacheKeyPrefix + id
	if cached, err := r.Cache.Get(ctx, cacheKey); err == nil {
		var res domain.Resource
		if jsonErr := json.Unmarshal([]byte(cached), &res); jsonErr == nil {
			r.logger.Debug("Recurso servido do cache.", map[string]interface{}{"id": id})
			return res, nil
		}
		// Cache corrompido: remove e cai para o DB
		_ = r.Cache.Delete(ctx, cacheKey)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, name, category, quantity, unit, municipality, location_hint, created_at, updated_at
        FROM resources
        WHERE id = $1`

	var res domain.Resource
	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(
		&res.ID, &res.Name, &res.Category, &res.Quantity, &res.Unit,
		&res.Municipality, &res.LocationHint, &res.CreatedAt, &res.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		r.logger.Info("Recurso não encontrado.", map[string]interface{}{"id": id})
		return domain.Resource{}, errors.NewNotFoundError(id, fmt.Sprintf("Recurso com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar recurso no DB.", err)
		return domain.Resource{}, errors.NewDBError("Falha ao buscar recurso", err)
	}

	if payload, jsonErr := json.Marshal(res); jsonErr == nil {
		if cacheErr := r.Cache.Set(ctx, cacheKey, string(payload), r.CacheTimeout); cacheErr != nil {
			r.logger.Warn("Falha ao popular cache de recurso.", map[string]interface{}{"id": id, "error": cacheErr.Error()})
		}
	}

	return res, nil
}

// Municipalities retorna a projeção de municípios distintos derivada do catálogo.
// Computada sob demanda, nunca armazenada de forma redundante.
func (r *CatalogRepository) Municipalities(ctx context.Context) ([]string, error) {
	r.logger.Debug("Iniciando Municipalities no repositório de catálogo.", nil)

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT DISTINCT municipality
        FROM resources
        ORDER BY municipality`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao executar Municipalities query.", err)
		return nil, errors.NewDBError("Falha ao buscar municípios", err)
	}
	defer rows.Close()

	var municipalities []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			r.logger.Error("Falha ao mapear município na iteração.", err)
			return nil, errors.NewDBError("Falha ao mapear municípios do DB", err)
		}
		municipalities = append(municipalities, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de municípios.", err)
		return nil, errors.NewDBError("Erro após iteração de municípios", err)
	}

	return municipalities, nil
}
