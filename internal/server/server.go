package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/weizhangcs/vss-cloud/internal/ai/component"
	"github.com/weizhangcs/vss-cloud/internal/config"
	"github.com/weizhangcs/vss-cloud/internal/handler"
	dubbingHandler "github.com/weizhangcs/vss-cloud/internal/handler/dubbing"
	narrationHandler "github.com/weizhangcs/vss-cloud/internal/handler/narration"
	"github.com/weizhangcs/vss-cloud/internal/pkg/ark"
	"github.com/weizhangcs/vss-cloud/internal/pkg/cache"
	"github.com/weizhangcs/vss-cloud/internal/pkg/cosyvoice"
	"github.com/weizhangcs/vss-cloud/internal/pkg/dubbing"
	"github.com/weizhangcs/vss-cloud/internal/pkg/ffmpeg"
	"github.com/weizhangcs/vss-cloud/internal/pkg/mongodb"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration"
	"github.com/weizhangcs/vss-cloud/internal/pkg/narration/providers"
	"github.com/weizhangcs/vss-cloud/internal/pkg/rag"
	"github.com/weizhangcs/vss-cloud/internal/pkg/storage"
	"github.com/weizhangcs/vss-cloud/internal/pkg/storagefactory"
	"github.com/weizhangcs/vss-cloud/internal/pkg/tts"
	dubbingRepo "github.com/weizhangcs/vss-cloud/internal/repository/dubbing"
	narrationRepo "github.com/weizhangcs/vss-cloud/internal/repository/narration"
	"github.com/weizhangcs/vss-cloud/internal/server/middleware"
	"github.com/weizhangcs/vss-cloud/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg          *config.Config
	engine       *gin.Engine
	mongo        *mongodb.Client
	redis        *cache.RedisCache
	narrationSvc *service.NarrationService
	dubbingSvc   *service.DubbingService
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (可选)
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 初始化解说生成服务（需要 AI + RAG + MongoDB）
	narrationEngine, err := srv.buildNarrationEngine()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize narration engine, narration endpoints disabled")
	}
	if narrationEngine != nil && mongoClient != nil {
		scriptRepo := narrationRepo.NewScriptRepo(mongoClient.Database())
		srv.narrationSvc = service.NewNarrationService(narrationEngine, scriptRepo, cfg.Narration)
		log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized narration service")
	}

	// 初始化配音渲染服务（依赖至少一个合成通道）
	dubbingEngine := srv.buildDubbingEngine()
	if dubbingEngine != nil && mongoClient != nil {
		var store storage.Storage
		st, err := storagefactory.NewStorage(context.Background(), &cfg.Storage)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize storage, dubbing tracks stay local")
		} else {
			store = st
		}

		scriptRepo := narrationRepo.NewScriptRepo(mongoClient.Database())
		trackRepo := dubbingRepo.NewTrackRepo(mongoClient.Database())
		srv.dubbingSvc = service.NewDubbingService(dubbingEngine, scriptRepo, trackRepo, store)
		log.Info().Msg("initialized dubbing service")
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// buildNarrationEngine 组装解说生成引擎：AI 生成器 + RAG 检索器 + 模版元数据
func (s *Server) buildNarrationEngine() (*narration.Engine, error) {
	aiCfg := s.cfg.AI
	if aiCfg.APIKey == "" {
		// 配置文件未给密钥时回退到 ARK_* 环境变量
		envCfg := ark.ArkConfigFromEnv()
		if envCfg.APIKey == "" {
			return nil, errors.New("AI API key not configured")
		}
		log.Info().Msg("AI 密钥取自 ARK_* 环境变量")
		aiCfg.APIKey = envCfg.APIKey
		if aiCfg.Model == "" {
			aiCfg.Model = envCfg.Model
		}
		if aiCfg.BaseURL == "" {
			aiCfg.BaseURL = envCfg.BaseURL
		}
	}

	var generator narration.Generator
	if aiCfg.Provider == "ark_sdk" {
		// 直连火山方舟 SDK，绕开 eino 编排层
		arkClient, err := ark.NewClient(&aiCfg)
		if err != nil {
			return nil, err
		}
		generator = providers.NewArkProvider(arkClient)
	} else {
		chatModel, err := component.NewChatModel(context.Background(), &aiCfg)
		if err != nil {
			return nil, err
		}
		generator = providers.NewEinoProvider(chatModel)
	}

	ragClient, err := rag.NewClient(s.cfg.RAG)
	if err != nil {
		return nil, err
	}
	retriever := rag.NewCachedRetriever(ragClient, s.redis, s.cfg.RAG.CacheTTL)

	metadata := narration.LoadMetadata(s.cfg.Narration.MetadataDir)
	return narration.NewEngine(generator, retriever, metadata, s.cfg.Narration.RefineConcurrency), nil
}

// buildDubbingEngine 组装配音渲染引擎，按配置注册可用的合成策略
func (s *Server) buildDubbingEngine() *dubbing.Engine {
	strategies := make(map[string]dubbing.Strategy)

	if s.cfg.TTS.AccessToken != "" {
		ttsClient, err := tts.NewClient(s.cfg.TTS)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize volcengine TTS client")
		} else {
			strategies["volcengine"] = dubbing.NewVolcengineStrategy(ttsClient)
		}
	}

	if s.cfg.CosyVoice.ServiceURL != "" {
		cvClient, err := cosyvoice.NewClient(s.cfg.CosyVoice)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize CosyVoice client")
		} else {
			strategies["cosyvoice"] = dubbing.NewCosyVoiceStrategy(cvClient, s.redis)
		}
	}

	if len(strategies) == 0 {
		log.Warn().Msg("no synthesis strategy configured, dubbing endpoints disabled")
		return nil
	}

	instructs := dubbing.LoadInstructTable(s.cfg.Narration.MetadataDir)
	assembler := dubbing.NewAssembler(ffmpeg.NewClient())
	return dubbing.NewEngine(strategies, s.cfg.Templates, instructs, assembler, s.cfg.Dubbing)
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 解说生成接口
		if s.narrationSvc != nil {
			narrationHdl := narrationHandler.NewHandler(s.narrationSvc)
			v1.POST("/narrations", narrationHdl.Generate)
			v1.GET("/narrations", narrationHdl.GetLatestByAsset)
			v1.GET("/narrations/:narration_id", narrationHdl.Get)
		} else {
			log.Warn().Msg("narration service not available, narration endpoints disabled")
		}

		// 配音渲染接口
		if s.dubbingSvc != nil {
			dubbingHdl := dubbingHandler.NewHandler(s.dubbingSvc)
			v1.POST("/dubbings", dubbingHdl.Generate)
			v1.GET("/dubbings/:dubbing_id", dubbingHdl.Get)
		} else {
			log.Warn().Msg("dubbing service not available, dubbing endpoints disabled")
		}
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
