package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/config"
	"github.com/noah-isme/proctor-go-api/internal/database"
	"github.com/noah-isme/proctor-go-api/internal/handler"
	"github.com/noah-isme/proctor-go-api/internal/middleware"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/observability"
	"github.com/noah-isme/proctor-go-api/internal/repository"
	"github.com/noah-isme/proctor-go-api/internal/router"
	"github.com/noah-isme/proctor-go-api/internal/service"
	"github.com/noah-isme/proctor-go-api/pkg/sandbox"
	"github.com/noah-isme/proctor-go-api/pkg/storage"
	"github.com/noah-isme/proctor-go-api/pkg/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.ExamAssignment{},
		&models.Result{},
		&models.CheatingLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, alert fan-out disabled")
		} else {
			defer natsConn.Close()
		}
	}

	var uploader service.FileUploader
	if cfg.SnapshotCloudName != "" {
		store, err := storage.New(storage.Config{
			CloudName: cfg.SnapshotCloudName,
			APIKey:    cfg.SnapshotAPIKey,
			APISecret: cfg.SnapshotAPISecret,
			Folder:    cfg.SnapshotFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create snapshot store: %v", err)
		}
		uploader = store
	}

	var classifier service.FrameClassifier
	if cfg.ClassifierURL != "" {
		client, err := vision.NewClient(vision.Config{
			BaseURL: cfg.ClassifierURL,
			APIKey:  cfg.ClassifierAPIKey,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create classifier client: %v", err)
		}
		classifier = client
	}

	var runner service.CodeRunner
	dockerRunner, err := sandbox.NewDockerRunner(sandbox.Config{
		Host:          cfg.DockerHost,
		Timeout:       cfg.ExecutionTimeout,
		MemoryLimitMB: int64(cfg.CodeRunMemoryMB),
		CPUShares:     int64(cfg.CodeRunCPUShares),
		Logger:        logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("docker unavailable, code grading disabled")
	} else {
		runner = dockerRunner
		defer dockerRunner.Close()
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	cheatingLogRepo := repository.NewCheatingLogRepository(db)

	grantStore := service.NewRedisGrantStore(redisClient, cfg.TokenTTL)

	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	examService := service.NewExamService(examRepo, questionRepo, validate, logger)
	accessService := service.NewAccessService(examRepo, questionRepo, assignmentRepo, grantStore, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, examRepo, userRepo, validate, logger)
	escalationService := service.NewEscalationService(userRepo, logger)
	proctorService := service.NewProctorService(examRepo, assignmentRepo, classifier, uploader, natsConn, cfg.AlertSubjectPrefix, logger)
	cheatingLogService := service.NewCheatingLogService(cheatingLogRepo, examRepo, redisClient, cfg.SummaryCacheTTL, logger)
	submissionService := service.NewSubmissionService(
		examRepo,
		questionRepo,
		resultRepo,
		cheatingLogRepo,
		userRepo,
		assignmentRepo,
		assignmentService,
		proctorService,
		escalationService,
		runner,
		validate,
		logger,
	)

	deps := router.Dependencies{
		AuthHandler:        handler.NewAuthHandler(authService, logger),
		ExamHandler:        handler.NewExamHandler(examService, accessService, logger),
		AssignmentHandler:  handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		ProctorHandler:     handler.NewProctorHandler(proctorService, logger),
		CheatingLogHandler: handler.NewCheatingLogHandler(cheatingLogService, logger),
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("server started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
