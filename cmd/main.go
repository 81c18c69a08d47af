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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/config"
	"listing_studio_v1/internal/controller"
	"listing_studio_v1/internal/middleware"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/repository"
	"listing_studio_v1/internal/router"
	"listing_studio_v1/internal/service"
	"listing_studio_v1/internal/task"
	"listing_studio_v1/pkg/catalog"
	"listing_studio_v1/pkg/database"
	"listing_studio_v1/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// 1. 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		zl.Fatal("初始化数据库失败", zap.Error(err))
	}

	// 2. 初始化依赖
	deps, err := initDependencies(cfg, db, zl)
	if err != nil {
		zl.Fatal("初始化依赖失败", zap.Error(err))
	}

	// 3. 启动定时任务
	if err := deps.Tasks.StartAll(); err != nil {
		zl.Fatal("启动定时任务失败", zap.Error(err))
	}

	// 4. 初始化路由
	r := initRouter(cfg, deps, zl)

	// 5. 启动服务
	startServer(cfg, r, deps, zl)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Services    *Services
	Tasks       *task.TaskManager
	Controllers router.Controllers
	UploadsRoot string
}

// Services 服务集合
type Services struct {
	Draft   *service.DraftService
	Publish *service.PublishService
	Media   *service.MediaService
	Session *service.SessionService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	opts := database.DefaultOptions()
	opts.Debug = cfg.Env == "development"
	return database.InitDB(cfg.DatabaseDSN, opts,
		&model.ListingDraft{},
		&model.PublicationRecord{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, zl *zap.Logger) (*Dependencies, error) {
	// -------- Repo 层 --------
	draftRepo := repository.NewListingDraftRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)

	// -------- 外部依赖 --------
	storage, err := service.NewStorageProvider(service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		return nil, err
	}
	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		APIKey:  cfg.Catalog.APIKey,
		Timeout: cfg.Catalog.Timeout,
		Debug:   cfg.Catalog.Debug,
	})
	autosave := task.NewAutosaveTask(cfg.Autosave.Interval, cfg.Autosave.Timeout, zl)

	// -------- 业务服务 --------
	services := &Services{}
	services.Draft = service.NewDraftService(draftRepo, service.RetentionPolicy{
		MaxPerOwner: cfg.Retention.MaxPerOwner,
		MaxAge:      cfg.Retention.MaxAge,
	}, zl)
	services.Publish = service.NewPublishService(catalogClient, publicationRepo, zl)
	services.Media = service.NewMediaService(storage, cfg.Media.MaxParallel, zl)
	services.Session = service.NewSessionService(
		services.Draft, services.Publish, services.Media,
		autosave, cfg.Session.IdleTTL, zl,
	)

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Autosave: autosave,
		Sweeper:  services.Draft,
		Reaper:   services.Session,
	}, &task.TaskManagerConfig{
		RetentionEnabled: true,
		RetentionSpec:    cfg.Retention.SweepSpec,
		ReaperEnabled:    true,
		ReaperSpec:       cfg.Session.ReaperSpec,
	}, zl)

	// -------- Controller 层 --------
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	controllers := router.Controllers{
		Listing: controller.NewListingController(services.Session),
		Draft:   controller.NewDraftController(services.Draft, services.Publish),
		Health:  controller.NewHealthController(sqlDB, services.Session),
	}

	deps := &Dependencies{
		DB:          db,
		Services:    services,
		Tasks:       tasks,
		Controllers: controllers,
	}
	if local, ok := storage.(*service.LocalStorage); ok {
		deps.UploadsRoot = local.Root()
	}
	return deps, nil
}

// initRouter 初始化路由和中间件
func initRouter(cfg *config.Config, deps *Dependencies, zl *zap.Logger) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret != "" {
		jwtCfg := middleware.DefaultJWTConfig()
		jwtCfg.SecretKey = cfg.JWTSecret
		middleware.SetJWTConfig(jwtCfg)
	}
	if err := dto.RegisterValidators(); err != nil {
		zl.Fatal("注册校验规则失败", zap.Error(err))
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(middleware.RequestID(), middleware.RequestLog(zl.Named("http")), middleware.Recovery(zl))
	router.InitRoutes(r, deps.Controllers, router.Options{UploadsRoot: deps.UploadsRoot})
	return r
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后先保存全部会话再停止
func startServer(cfg *config.Config, r *gin.Engine, deps *Dependencies, zl *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		zl.Info("服务启动", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("服务强制关闭", zap.Error(err))
	}
	deps.Services.Session.Shutdown(ctx)
	deps.Tasks.StopAll()

	zl.Info("服务已退出")
}
