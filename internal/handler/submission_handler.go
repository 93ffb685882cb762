package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/service"
	"github.com/noah-isme/proctor-go-api/internal/utils"
)

// SubmissionHandler wires exam submission and result routes.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches student-facing submission endpoints.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("/:ref/submissions", h.submit)
}

// RegisterResults attaches result read endpoints. The exam-wide listing is
// guarded by the teacher role at the router.
func (h *SubmissionHandler) RegisterResults(router fiber.Router) {
	router.Get("/me", h.myResults)
}

// RegisterTeacherResults attaches the per-exam result listing.
func (h *SubmissionHandler) RegisterTeacherResults(router fiber.Router) {
	router.Get("/exam/:ref", h.examResults)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	outcome, err := h.service.Submit(c.Context(), requestContext(c), c.Params("ref"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	if len(outcome.Warnings) > 0 {
		requestLogger(h.logger, c).Warn().
			Strs("warnings", outcome.Warnings).
			Uint("exam_id", outcome.Result.ExamID).
			Msg("submission completed with warnings")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission graded", outcome)
}

func (h *SubmissionHandler) myResults(c *fiber.Ctx) error {
	results, err := h.service.ResultsForStudent(c.Context(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *SubmissionHandler) examResults(c *fiber.Ctx) error {
	results, err := h.service.ResultsForExam(c.Context(), c.Params("ref"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	if accessErr, ok := service.AsAccessError(err); ok {
		return accessDeniedResponse(c, accessErr)
	}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrCodeExecution):
		return utils.SendError(c, fiber.StatusBadGateway, "code execution unavailable, submission not graded")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *SubmissionHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
