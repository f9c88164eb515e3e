package http

import (
	"context"
	"time"

	"ChatNest/internal/config"
	jwtMiddleware "ChatNest/internal/middleware/jwt"
	accountService "ChatNest/internal/modules/account/application/service"
	accountPersistence "ChatNest/internal/modules/account/infrastructure/persistence"
	accountHandler "ChatNest/internal/modules/account/interface/http"
	chatbotService "ChatNest/internal/modules/chatbot/application/service"
	"ChatNest/internal/modules/chatbot/infrastructure/cache"
	"ChatNest/internal/modules/chatbot/infrastructure/extraction"
	chatbotPersistence "ChatNest/internal/modules/chatbot/infrastructure/persistence"
	"ChatNest/internal/modules/chatbot/infrastructure/storage"
	chatbotHandler "ChatNest/internal/modules/chatbot/interface/http"
	widgetService "ChatNest/internal/modules/widget/application/service"
	"ChatNest/internal/modules/widget/infrastructure/knowledge"
	"ChatNest/internal/modules/widget/infrastructure/llm"
	widgetPersistence "ChatNest/internal/modules/widget/infrastructure/persistence"
	"ChatNest/internal/modules/widget/infrastructure/pipeline"
	"ChatNest/internal/modules/widget/infrastructure/prompt"
	widgetHandler "ChatNest/internal/modules/widget/interface/http"
	"ChatNest/pkg/ssl"
	"ChatNest/pkg/util/myjwt"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewEngine 组装仓储、服务与路由
func NewEngine(conf *config.Config, db *gorm.DB) (*gin.Engine, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	GE := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = conf.WidgetConfig.AllowOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Timezone"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port, conf.SecurityConfig.SSLRedirect))

	// 仓储
	accountRepo := accountPersistence.NewAccountRepository(db)
	chatbotRepo := cache.NewCachedChatbotRepository(
		chatbotPersistence.NewChatbotRepository(db),
		time.Duration(conf.RedisConfig.CacheTTLSeconds)*time.Second,
	)
	knowledgeRepo := chatbotPersistence.NewKnowledgeRepository(db)
	uow := chatbotPersistence.NewChatbotUnitOfWork(db)
	sessionRepo := widgetPersistence.NewChatSessionRepository(db)
	messageRepo := widgetPersistence.NewChatMessageRepository(db)
	statsRepo := widgetPersistence.NewConversationStatsRepository(db)

	// 外部依赖
	gateway, err := llm.NewGateway(context.Background(), llm.Options{
		BaseURL:       conf.LLMConfig.BaseURL,
		APIKey:        conf.LLMConfig.APIKey,
		Model:         conf.LLMConfig.Model,
		Temperature:   conf.LLMConfig.Temperature,
		MaxTokens:     conf.LLMConfig.MaxTokens,
		Timeout:       time.Duration(conf.LLMConfig.TimeoutSeconds) * time.Second,
		HealthTimeout: time.Duration(conf.LLMConfig.HealthTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	builder := prompt.NewBuilder(conf.PromptConfig.Instructions, conf.WidgetConfig.MaxMessageLength)
	widgetPipe, err := pipeline.NewWidgetPipeline(
		chatbotRepo,
		sessionRepo,
		messageRepo,
		knowledge.NewContextAssembler(knowledgeRepo),
		builder,
		gateway,
	)
	if err != nil {
		return nil, err
	}

	// 服务
	accountSvc := accountService.NewAccountService(accountRepo, myjwt.GenerateToken)
	chatbotSvc := chatbotService.NewChatbotService(
		chatbotRepo,
		knowledgeRepo,
		uow,
		extraction.NewPDFExtractor(),
		storage.NewLocalStorage(conf.StorageConfig.UploadDir),
		chatbotService.Options{
			PublicBaseURL: conf.MainConfig.PublicBaseURL,
			MaxPdfBytes:   conf.StorageConfig.MaxPdfBytes,
		},
	)
	analyticsSvc := chatbotService.NewAnalyticsService(chatbotRepo, statsRepo, messageRepo)
	widgetSvc := widgetService.NewWidgetService(widgetPipe, chatbotRepo, gateway, sqlDB, conf.MainConfig.Timezone)

	accountH := accountHandler.NewAccountHandler(accountSvc)
	chatbotH := chatbotHandler.NewChatbotHandler(chatbotSvc, analyticsSvc, conf.StorageConfig.MaxPdfBytes)
	widgetH := widgetHandler.NewWidgetHandler(widgetSvc, conf.WidgetConfig.SessionCookieName)

	GE.GET("/health", widgetH.Health)
	GE.POST("/register", accountH.Register)
	GE.POST("/login", accountH.Login)

	// 访客侧，无需登录
	GE.POST("/widget/:chatbotId/send", widgetH.Send)
	GE.GET("/widget/:chatbotId/info", widgetH.Info)

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/chatbots", chatbotH.List)
	authed.POST("/chatbots", chatbotH.Create)
	authed.GET("/chatbots/:id", chatbotH.Get)
	authed.PUT("/chatbots/:id", chatbotH.Update)
	authed.DELETE("/chatbots/:id", chatbotH.Delete)
	authed.POST("/chatbots/:id/knowledge", chatbotH.AddKnowledge)
	authed.DELETE("/chatbots/:id/knowledge/:docId", chatbotH.DeleteKnowledge)
	authed.GET("/chatbots/:id/analytics", chatbotH.Analytics)
	authed.GET("/analytics", chatbotH.Overview)

	return GE, nil
}
