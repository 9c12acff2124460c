package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"project-chat-service/internal/config"
	"project-chat-service/internal/db"
	"project-chat-service/internal/handlers"
	"project-chat-service/internal/invitations"
	"project-chat-service/internal/middleware"
	"project-chat-service/internal/observability"
	"project-chat-service/internal/rabbitmq"
	"project-chat-service/internal/repositories"
	"project-chat-service/internal/telemetry"
	"project-chat-service/internal/ws"
)

const serviceName = "project-chat-service"

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	inviteStore, err := invitations.NewStore(cfg.RedisURL, cfg.InviteTTL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer inviteStore.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode: %s", rabbitmq.PublisherMode(publisher))

	if cfg.AMQPURL != "" {
		amqpPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("observability publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(amqpPublisher)
			defer amqpPublisher.Close()
		}
	}

	emitter := telemetry.NewAuditEmitter(publisher, "realtime_events.audit", serviceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	orgRepo := repositories.NewOrganizationRepo(database)
	projectRepo := repositories.NewProjectRepo(database)
	taskRepo := repositories.NewTaskRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	registry := ws.NewMemoryRegistry()
	engine := ws.NewEngine(registry, userRepo, projectRepo, orgRepo, messageRepo)

	sessionHandler := ws.NewSessionHandler(engine)
	pollHandler := ws.NewLongPollHandler(engine, 2*time.Minute)
	pollHandler.StartJanitor(ctx)

	orgHandler := handlers.NewOrganizationHandler(userRepo, orgRepo)
	projectHandler := handlers.NewProjectHandler(userRepo, orgRepo, projectRepo)
	taskHandler := handlers.NewTaskHandler(userRepo, orgRepo, projectRepo, taskRepo)
	chatHandler := handlers.NewChatHandler(userRepo, projectRepo, orgRepo, messageRepo)
	inviteHandler := handlers.NewInvitationHandler(userRepo, orgRepo, inviteStore, emitter)
	dashboardHandler := handlers.NewDashboardHandler(userRepo, orgRepo, projectRepo, taskRepo)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identity := middleware.Identity()

	router.GET("/dashboard", identity, dashboardHandler.Summary)

	router.POST("/organizations", identity, orgHandler.Create)
	router.GET("/organizations", identity, orgHandler.List)
	router.GET("/organizations/:organization_id/members", identity, orgHandler.Members)
	router.POST("/organizations/:organization_id/leave", identity, orgHandler.Leave)

	router.GET("/organizations/:organization_id/projects", identity, projectHandler.List)
	router.POST("/organizations/:organization_id/projects", identity, projectHandler.Create)
	router.DELETE("/organizations/:organization_id/projects/:project_id", identity, projectHandler.Delete)

	router.GET("/organizations/:organization_id/projects/:project_id/tasks", identity, taskHandler.List)
	router.POST("/organizations/:organization_id/projects/:project_id/tasks", identity, taskHandler.Create)
	router.PATCH("/organizations/:organization_id/projects/:project_id/tasks/:task_id", identity, taskHandler.Update)
	router.DELETE("/organizations/:organization_id/projects/:project_id/tasks/:task_id", identity, taskHandler.Delete)

	router.GET("/projects/:project_id/messages", identity, chatHandler.GetProjectMessages)

	router.POST("/invitations", identity, inviteHandler.Create)
	router.GET("/invitations/:token", inviteHandler.Get)
	router.POST("/invitations/:token/accept", identity, inviteHandler.Accept)

	router.GET("/ws", identity, sessionHandler.Handle)

	router.POST("/poll", identity, pollHandler.Create)
	router.POST("/poll/:session_id/join", identity, pollHandler.Join)
	router.POST("/poll/:session_id/leave", identity, pollHandler.Leave)
	router.POST("/poll/:session_id/messages", identity, pollHandler.SendMessage)
	router.GET("/poll/:session_id/events", identity, pollHandler.Events)
	router.DELETE("/poll/:session_id", identity, pollHandler.Close)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
