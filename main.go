package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"public-chat/internal/auth"
	"public-chat/internal/config"
	"public-chat/internal/db"
	"public-chat/internal/handlers"
	"public-chat/internal/middleware"
	"public-chat/internal/observability"
	"public-chat/internal/rabbitmq"
	"public-chat/internal/realtime"
	"public-chat/internal/repositories"
	"public-chat/internal/telemetry"
	"public-chat/internal/ws"
)

const serviceName = "chatd"

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", publisher.Mode())
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	docRepo, closeDocs, err := documentRepository(ctx, cfg, database)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	defer closeDocs()
	accountRepo := repositories.NewAccountRepo(database)
	fileRepo := repositories.NewFileRepo(database)

	issuer, err := auth.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	hub := ws.NewHub()
	var bus realtime.Bus = realtime.NewLocalBus(hub)
	if cfg.NATSURL != "" {
		natsBus, err := realtime.NewNATSBus(ctx, cfg.NATSURL, hub)
		if err != nil {
			log.Fatalf("failed to connect realtime bus: %v", err)
		}
		bus = natsBus
	}
	defer bus.Close()

	accountHandler := handlers.NewAccountHandler(accountRepo, issuer, audit)
	documentHandler := handlers.NewDocumentHandler(docRepo, bus, audit)
	storageHandler := handlers.NewStorageHandler(fileRepo, audit, cfg.MaxUploadBytes)
	realtimeWS := ws.NewRealtimeHandler(hub, issuer)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Project", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	authMiddleware := middleware.AuthMiddleware(issuer, accountRepo)

	v1 := router.Group("/v1")
	v1.POST("/account", accountHandler.Create)
	v1.GET("/account", authMiddleware, accountHandler.Get)
	v1.POST("/account/sessions/email", accountHandler.CreateEmailPasswordSession)
	v1.DELETE("/account/sessions/:session_id", authMiddleware, accountHandler.DeleteSession)

	v1.GET("/databases/:database_id/collections/:collection_id/documents", documentHandler.ListDocuments)
	v1.POST("/databases/:database_id/collections/:collection_id/documents", authMiddleware, documentHandler.CreateDocument)
	v1.GET("/databases/:database_id/collections/:collection_id/documents/:document_id", documentHandler.GetDocument)

	v1.POST("/storage/buckets/:bucket_id/files", authMiddleware, storageHandler.CreateFile)
	v1.GET("/storage/buckets/:bucket_id/files/:file_id/view", storageHandler.ViewFile)
	v1.DELETE("/storage/buckets/:bucket_id/files/:file_id", authMiddleware, storageHandler.DeleteFile)

	v1.GET("/realtime", realtimeWS.Handle)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("chatd listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down chatd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
}

// documentRepository picks the document backend. Accounts and files stay in
// postgres either way.
func documentRepository(ctx context.Context, cfg *config.Server, database *sqlx.DB) (repositories.DocumentRepository, func(), error) {
	if cfg.DocumentBackend != "mongo" {
		return repositories.NewDocumentRepo(database), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	repo := repositories.NewMongoDocumentRepo(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	log.Printf("documents stored in mongo database=%s", cfg.MongoDatabase)
	return repo, func() { _ = client.Disconnect(context.Background()) }, nil
}
