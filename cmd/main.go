package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Pacotes de infraestrutura e utilitários
	"gomuni/config"
	"gomuni/internal/pkg/cache"
	"gomuni/internal/pkg/database"
	"gomuni/internal/pkg/events"
	"gomuni/internal/pkg/logger"
	"gomuni/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"gomuni/internal/api/catalog"
	"gomuni/internal/api/exchange"
	"gomuni/internal/api/reports"
	"gomuni/internal/api/router"
	"gomuni/internal/api/user"
	"gomuni/internal/repository/catalogrepo"
	"gomuni/internal/repository/ledgerrepo"
	"gomuni/internal/repository/userrepo"
	"gomuni/internal/service/catalogservice"
	"gomuni/internal/service/exchangeservice"
	"gomuni/internal/service/reportservice"
	"gomuni/internal/service/userservice"
)

// @title GoMuni API
// @version 1.0
// @description API de intercâmbio de recursos entre municípios: catálogo compartilhado, solicitações de empréstimo e decisões de aprovação.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Configuração e Inicialização
	stdlog.Println("⚡ Inicializando serviço GoMuni...")

	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Sem .env seguimos em frente: as variáveis essenciais podem estar no
		// ambiente do sistema (ex: Docker).
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache e Pub/Sub (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Publicador de eventos do fluxo de intercâmbio
	publisher := events.NewRedisPublisher(cacheClient, cfg.EventsChannel, log)

	// D. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	log.Debug("Serviço de Tokens JWT inicializado.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	catalogRepo := catalogrepo.NewCatalogRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTimeout, log)
	ledgerRepo := ledgerrepo.NewLedgerRepository(db, cacheClient, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	catalogSvc := catalogservice.NewService(catalogRepo, log)
	exchangeSvc := exchangeservice.NewService(catalogRepo, ledgerRepo, publisher, log)
	reportSvc := reportservice.NewService(catalogRepo, ledgerRepo, log)
	userSvc := userservice.NewService(userRepo, tokenSvc, log)
	log.Debug("Serviços inicializados.", nil)

	// C. Handlers (Camada de Apresentação)
	handlers := router.Handlers{
		User:     user.NewHandler(userSvc, log),
		Catalog:  catalog.NewHandler(catalogSvc, log),
		Exchange: exchange.NewHandler(exchangeSvc, log),
		Reports:  reports.NewHandler(reportSvc, log),
	}
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(handlers, tokenSvc, cacheClient, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor GoMuni ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
