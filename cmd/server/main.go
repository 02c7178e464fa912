// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa-go/internal/config"
	"docqa-go/internal/handler"
	"docqa-go/internal/middleware"
	"docqa-go/internal/model"
	"docqa-go/internal/pipeline"
	"docqa-go/internal/repository"
	"docqa-go/internal/service"
	"docqa-go/pkg/database"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/es"
	"docqa-go/pkg/kafka"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
	"docqa-go/pkg/storage"
	"docqa-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、向量索引和消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	store, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}
	index, err := es.NewIndex(cfg.Elasticsearch, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatalf("Elasticsearch 初始化失败: %v", err)
	}
	kafka.InitProducer(cfg.Kafka)

	// 自动建表
	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.DocumentChunk{},
		&model.Agent{},
		&model.KnowledgeContext{},
		&model.Conversation{},
		&model.Message{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	agentRepo := repository.NewAgentRepository(database.DB)
	contextRepo := repository.NewContextRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.DB, database.RDB)
	lockRepo := repository.NewIngestLockRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepo, jwtManager)
	knowledgeService := service.NewKnowledgeService(agentRepo, contextRepo, docRepo, cfg.RAG.UserDocLimit)
	retrievalService := service.NewRetrievalService(embeddingClient, index, knowledgeService, cfg.RAG.MatchThreshold, cfg.RAG.MatchCount)
	chatService := service.NewChatService(convRepo, knowledgeService, retrievalService, llmClient, cfg.RAG.Prompt, cfg.RAG.HistoryLimit)
	agentService := service.NewAgentService(agentRepo, docRepo)
	contextService := service.NewContextService(contextRepo, docRepo)
	conversationService := service.NewConversationService(convRepo, agentRepo, contextRepo)

	// 6. 初始化文档摄取管道 (Processor)
	processor := pipeline.NewProcessor(
		store,
		embeddingClient,
		index,
		docRepo,
		chunkRepo,
		lockRepo,
		cfg.RAG.ChunkSize,
		cfg.Embedding.Model,
	)
	documentService := service.NewDocumentService(docRepo, chunkRepo, store, index, processor, kafka.ProduceIngestTask)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	userHandler := handler.NewUserHandler(userService)
	documentHandler := handler.NewDocumentHandler(documentService)
	searchHandler := handler.NewSearchHandler(retrievalService)
	chatHandler := handler.NewChatHandler(chatService, jwtManager)
	agentHandler := handler.NewAgentHandler(agentService)
	contextHandler := handler.NewContextHandler(contextService)
	conversationHandler := handler.NewConversationHandler(conversationService)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", userHandler.Refresh)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager))
			{
				authed.GET("/me", userHandler.Profile)
			}
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(middleware.AuthMiddleware(jwtManager))
		{
			documents.POST("", documentHandler.Upload)
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/ingest", documentHandler.Ingest)
		}

		// Search 路由组
		search := apiV1.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager))
		{
			search.GET("", searchHandler.Search)
		}

		// Agent 路由组
		agents := apiV1.Group("/agents")
		agents.Use(middleware.AuthMiddleware(jwtManager))
		{
			agents.POST("", agentHandler.Create)
			agents.GET("", agentHandler.List)
			agents.GET("/:id", agentHandler.Get)
			agents.PUT("/:id", agentHandler.Update)
			agents.DELETE("/:id", agentHandler.Delete)
		}

		// Context 路由组
		contexts := apiV1.Group("/contexts")
		contexts.Use(middleware.AuthMiddleware(jwtManager))
		{
			contexts.POST("", contextHandler.Create)
			contexts.GET("", contextHandler.List)
			contexts.GET("/:id", contextHandler.Get)
			contexts.PUT("/:id", contextHandler.Update)
			contexts.DELETE("/:id", contextHandler.Delete)
		}

		// Conversation 路由组
		conversations := apiV1.Group("/conversations")
		conversations.Use(middleware.AuthMiddleware(jwtManager))
		{
			conversations.POST("", conversationHandler.Create)
			conversations.GET("", conversationHandler.List)
			conversations.GET("/:id", conversationHandler.Get)
			conversations.GET("/:id/messages", conversationHandler.Messages)
			conversations.PUT("/:id", conversationHandler.Update)
			conversations.PUT("/:id/agent", conversationHandler.BindAgent)
			conversations.PUT("/:id/context", conversationHandler.BindContext)
			conversations.PUT("/:id/rag", conversationHandler.SetRAG)
		}

		// Chat 路由
		chatGroup := apiV1.Group("/chat")
		chatGroup.Use(middleware.AuthMiddleware(jwtManager))
		{
			chatGroup.POST("/query", chatHandler.Query)
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketStopToken)
		}
	}
	// Chat 路由 (WebSocket)，token 放在路径中
	r.GET("/chat/:token", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已退出")
}
