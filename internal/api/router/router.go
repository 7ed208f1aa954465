package router

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"gomuni/config"
	"gomuni/internal/api/catalog"
	"gomuni/internal/api/exchange"
	"gomuni/internal/api/reports"
	"gomuni/internal/api/user"
	"gomuni/internal/pkg/cache"
	"gomuni/internal/pkg/middleware"
)

// Handlers agrupa os handlers já inicializados que o roteador expõe.
type Handlers struct {
	User     *user.Handler
	Catalog  *catalog.Handler
	Exchange *exchange.Handler
	Reports  *reports.Handler
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências; todas as
// rotas do fluxo de intercâmbio exigem autenticação, pois a identidade
// municipal vem do token.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, cacheClient cache.Client, cfg *config.Config) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)

	// --- 1. Health Check ---
	mux.HandleFunc("/ping", PingHandler)

	// --- 2. Autenticação (rotas públicas) ---
	mux.HandleFunc("/v1/users/register", h.User.RegisterUserHandler)
	mux.HandleFunc("/v1/users/login", h.User.LoginUserHandler)

	// --- 3. Catálogo de Recursos ---
	mux.HandleFunc("/v1/resources", auth(h.Catalog.ListResourcesHandler))
	mux.HandleFunc("/v1/resources/", auth(h.Catalog.GetResourceByIDHandler))
	mux.HandleFunc("/v1/municipalities", auth(h.Catalog.ListMunicipalitiesHandler))

	// --- 4. Fluxo de Intercâmbio ---
	// /v1/requests despacha GET (listagem) e POST (submissão);
	// /v1/requests/{id}/decision aplica o desfecho terminal.
	mux.HandleFunc("/v1/requests", auth(h.Exchange.RequestsHandler))
	mux.HandleFunc("/v1/requests/", auth(h.Exchange.DecisionHandler))

	// --- 5. Relatórios ---
	mux.HandleFunc("/v1/reports/summary", auth(h.Reports.SummaryHandler))

	// --- 6. Documentação (Swagger UI) ---
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// --- 7. Middlewares Globais ---
	// O rate limiter envolve o mux inteiro, contando requisições por IP no Redis.
	return middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
