package app

import (
	"context"
	"elearn_backend/internal/config"
	"elearn_backend/internal/controller"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/configwatcher"
	"elearn_backend/pkg/database"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"elearn_backend/pkg/security"
	"elearn_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigPath      string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	rateLimiter     *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	stop            chan struct{}
}

type repositories struct {
	user       *repository.UserRepository
	course     *repository.CourseRepository
	lesson     *repository.LessonRepository
	enrollment *repository.EnrollmentRepository
	forum      *repository.ForumRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	course      *service.CourseService
	lesson      *service.LessonService
	enrollment  *service.EnrollmentService
	dashboard   *service.DashboardService
	forum       *service.ForumService
	translation *service.TranslationService
	sessions    *service.SessionManager
	hub         *service.ProgressHub
	navigation  *service.NavigationService
	reconciler  *service.ProgressReconciler
}

type controllers struct {
	auth        *controller.AuthController
	user        *controller.UserController
	course      *controller.CourseController
	lesson      *controller.LessonController
	enrollment  *controller.EnrollmentController
	dashboard   *controller.DashboardController
	navigation  *controller.NavigationController
	forum       *controller.ForumController
	translation *controller.TranslationController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		course:     repository.NewCourseRepository(db),
		lesson:     repository.NewLessonRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		forum:      repository.NewForumRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.course = service.NewCourseService(repos.course, repos.lesson, service.NewStorageProvider(&cfg.Storage))
	s.hub = service.NewProgressHub(rdb)
	s.enrollment = service.NewEnrollmentService(repos.user, repos.course, repos.lesson, repos.enrollment)
	s.enrollment.Notifier = s.hub
	s.lesson = service.NewLessonService(repos.course, repos.lesson, repos.user, s.enrollment)
	s.dashboard = service.NewDashboardService(repos.user, repos.course, repos.lesson, cfg.Dashboard.RecentLimit)
	s.forum = service.NewForumService(repos.forum, repos.user, repos.course, repos.lesson)
	s.translation = service.NewTranslationService(cfg.Translation, rdb)

	s.sessions = service.NewSessionManager(s.auth)
	s.navigation = service.NewNavigationService(s.sessions, repos.course, repos.lesson, s.lesson)
	s.reconciler = service.NewProgressReconciler(repos.course, s.enrollment)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		user:        controller.NewUserController(s.user, s.forum),
		course:      controller.NewCourseController(s.course),
		lesson:      controller.NewLessonController(s.lesson),
		enrollment:  controller.NewEnrollmentController(s.enrollment, s.hub),
		dashboard:   controller.NewDashboardController(s.dashboard),
		navigation:  controller.NewNavigationController(s.navigation),
		forum:       controller.NewForumController(s.forum),
		translation: controller.NewTranslationController(s.translation),
		health:      controller.NewHealthController(db, rdb),
	}
}

func rateWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.rateLimiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg))
	go a.rateLimiter.Run(a.stop)
	router.Use(a.rateLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloaders 配置热更新时同步日志级别、翻译服务和限流参数
func (a *App) registerReloaders() {
	a.RegisterConfigCallback(logger.SetLevel)
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.translation.UpdateConfig(cfg.Translation)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.rateLimiter.Update(cfg.RateLimit.MaxRequests, rateWindow(cfg))
	})
}

func (a *App) startBackgroundTasks(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-a.stop
		cancel()
	}()

	go a.services.hub.Run(ctx)

	if cfg.Jobs.ReconcileEnabled {
		if err := a.services.reconciler.Start(cfg.Jobs.ReconcileSchedule); err != nil {
			logger.Log.Error("Failed to start progress reconciler", zap.Error(err))
		}
	}

	if a.ConfigPath == "" {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(a.ConfigPath, "config.yaml"), func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
			logger.Log.Info("Config reloaded")
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configPath string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.ForceMigrate || cfg.Server.Mode != "release")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config:     cfg,
		ConfigPath: configPath,
		DB:         db,
		stop:       make(chan struct{}),
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 用于翻译缓存和多实例进度推送，不可用时降级为单机
	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, running without cache and pub/sub", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, app.Redis)
	controllers := app.initControllers(app.services, db, app.Redis)

	if cfg.Admin.Email != "" {
		if err := app.services.auth.EnsureAdmin(context.Background(), cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Log.Error("Failed to ensure admin account", zap.Error(err))
		}
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerReloaders()
	app.startBackgroundTasks(cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	a.Close(ctx)
	log.Println("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	close(a.stop)
	if a.services != nil {
		a.services.reconciler.Stop()
		a.services.sessions.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
