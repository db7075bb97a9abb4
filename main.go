package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const tokenTTL = 8 * time.Hour

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("initializing logger: %w", err))
	}
	defer logger.Sync()

	serviceName := getEnv("SERVICE_NAME", "pdv-erp-api")
	otlpEndpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	ctx := context.Background()

	tp, err := initTracer(ctx, serviceName, otlpEndpoint)
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer", zap.Error(err))
		}
	}()

	mp, err := initMetrics(ctx, serviceName, otlpEndpoint)
	if err != nil {
		logger.Fatal("failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down meter", zap.Error(err))
		}
	}()

	dbPool, err := initDB(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	salesClosed, err := newSalesClosedCounter(serviceName)
	if err != nil {
		logger.Fatal("failed to create sales counter", zap.Error(err))
	}

	audit := NewAuditSink(NewAuditRepository(dbPool), logger)
	tokens := NewTokenManager(getEnv("JWT_SECRET_KEY", "chave_secreta_padrao_para_desenvolvimento"), tokenTTL)
	integrations := NewIntegrationsClient(
		getEnv("PAYMENT_GATEWAY_URL", "http://simulador.pagamento.com/api/charge"),
		getEnv("NFE_EMITTER_URL", "http://simulador.nfe.com/api/emitir"),
		logger,
	)

	products := NewProductRepository(dbPool)
	tracer := tp.Tracer(serviceName)

	handler := NewAPIHandler(
		NewAuthUseCase(NewUserRepository(dbPool), tokens, audit),
		NewSaleUseCase(NewSaleRepository(dbPool), products, integrations, integrations, audit, logger, tracer, salesClosed),
		NewProductUseCase(products, audit),
		NewReceivingUseCase(products, audit, logger),
		audit,
		logger,
		tracer,
	)

	r := gin.Default()
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")
	api.POST("/auth/login", handler.Login)

	erp := api.Group("/erp", AuthRequired(tokens))
	erp.POST("/vendas/fechar", handler.CloseSale)
	erp.POST("/produtos/cadastrar", handler.SaveProduct)
	erp.GET("/produtos/buscar/:barcode", handler.FindProduct)
	erp.POST("/recebimento/confirmar", handler.ConfirmReceipt)

	mgmt := erp.Group("", RequirePermission(audit, PermissionAdmin, PermissionGerente))
	mgmt.GET("/admin/usuarios", handler.ListUsers)
	mgmt.GET("/dashboard/kpis", handler.DashboardKPIs)

	port := getEnv("PORT", "8080")
	logger.Info("🚀 PDV/ERP API listening", zap.String("port", port))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func initDB(ctx context.Context, logger *zap.Logger) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DATABASE_USER", "root"),
		getEnv("DATABASE_PASSWORD", "pass"),
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_NAME", "pdv_erp"),
	)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Aguarda o banco subir junto com o serviço
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			logger.Info("✅ connected to database")
			return pool, nil
		}
		logger.Info("⏳ waiting for database...", zap.Int("attempt", i+1))
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
