package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/proctor-go-api/internal/config"
	"github.com/noah-isme/proctor-go-api/internal/handler"
	"github.com/noah-isme/proctor-go-api/internal/middleware"
	"github.com/noah-isme/proctor-go-api/internal/models"
	"github.com/noah-isme/proctor-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	ExamHandler        *handler.ExamHandler
	AssignmentHandler  *handler.AssignmentHandler
	SubmissionHandler  *handler.SubmissionHandler
	ProctorHandler     *handler.ProctorHandler
	CheatingLogHandler *handler.CheatingLogHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	teacherOnly := middleware.RequireRole(models.RoleTeacher)

	if deps.AuthHandler != nil {
		// Credential endpoints are the brute-force surface; everything
		// else sits behind a valid token already.
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)

		users := api.Group("/users", jwtMiddleware, teacherOnly)
		deps.AuthHandler.RegisterProtected(users)
	}

	if deps.ExamHandler != nil {
		exams := api.Group("/exams", jwtMiddleware)
		deps.ExamHandler.Register(exams)
		deps.ExamHandler.RegisterTeacher(exams.Group("", teacherOnly))

		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.Register(exams)
		}
	}

	if deps.SubmissionHandler != nil {
		results := api.Group("/results", jwtMiddleware)
		deps.SubmissionHandler.RegisterResults(results)
		deps.SubmissionHandler.RegisterTeacherResults(results.Group("", teacherOnly))
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware, teacherOnly)
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.ProctorHandler != nil {
		proctor := api.Group("/proctor", jwtMiddleware)
		deps.ProctorHandler.Register(proctor)
	}

	if deps.CheatingLogHandler != nil {
		logs := api.Group("/cheating-logs", jwtMiddleware, teacherOnly)
		deps.CheatingLogHandler.Register(logs)
	}
}
