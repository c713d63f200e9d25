package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/controller"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/service"
	"github.com/koolranch/flat-earth-training/pkg/configwatcher"
	"github.com/koolranch/flat-earth-training/pkg/database"
	"github.com/koolranch/flat-earth-training/pkg/logger"
	"github.com/koolranch/flat-earth-training/pkg/monitoring"
	"github.com/koolranch/flat-earth-training/pkg/security"
	"github.com/koolranch/flat-earth-training/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	cron     *cron.Cron
}

type repositories struct {
	user         *repository.UserRepository
	course       *repository.CourseRepository
	enrollment   *repository.EnrollmentRepository
	organization *repository.OrganizationRepository
	seat         *repository.SeatRepository
	invitation   *repository.InvitationRepository
	certificate  *repository.CertificateRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	email       *service.EmailService
	course      *service.CourseService
	progression *service.ProgressionService
	certificate *service.CertificateService
	org         *service.OrgService
	invitation  *service.InvitationService
}

type controllers struct {
	auth       *controller.AuthController
	course     *controller.CourseController
	training   *controller.TrainingController
	org        *controller.OrgController
	invitation *controller.InvitationController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		course:       repository.NewCourseRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		organization: repository.NewOrganizationRepository(db),
		seat:         repository.NewSeatRepository(db),
		invitation:   repository.NewInvitationRepository(db),
		certificate:  repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.email = service.NewEmailService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course, repos.enrollment, rdb)
	s.certificate = service.NewCertificateService(repos.certificate, repos.user, s.storage, s.email)
	s.progression = service.NewProgressionService(repos.course, repos.enrollment, s.certificate, cfg, db)
	s.org = service.NewOrgService(repos.organization, repos.seat, repos.enrollment, repos.user, repos.certificate, db)
	s.invitation = service.NewInvitationService(
		repos.invitation,
		repos.organization,
		repos.seat,
		repos.enrollment,
		repos.user,
		s.email,
		cfg,
		db,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		course:     controller.NewCourseController(s.course),
		training:   controller.NewTrainingController(s.course, s.progression, s.certificate),
		org:        controller.NewOrgController(s.org),
		invitation: controller.NewInvitationController(s.invitation),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks schedules the invitation expiry sweep. Overdue
// invitations are also expired lazily at acceptance, so the sweep only
// has to keep the org invitation lists honest.
func (a *App) startBackgroundTasks(s *services) {
	a.cron = cron.New()
	if _, err := a.cron.AddFunc("@hourly", s.invitation.ExpireOverdue); err != nil {
		logger.Log.Error("failed to schedule invitation expiry sweep", zap.Error(err))
	}
	a.cron.Start()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, course cache disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("flat-earth-training", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	// Hot-reload the tunable knobs; connection settings still need a
	// restart.
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		cfg.Training = newCfg.Training
		cfg.CORS = newCfg.CORS
		cfg.RateLimit = newCfg.RateLimit
		logger.Log.Info("configuration reloaded")
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.cron != nil {
		a.cron.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
