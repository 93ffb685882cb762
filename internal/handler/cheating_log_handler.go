package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/repository"
	"github.com/noah-isme/proctor-go-api/internal/service"
	"github.com/noah-isme/proctor-go-api/internal/utils"
)

// CheatingLogHandler wires the teacher-facing cheating log routes.
type CheatingLogHandler struct {
	service service.CheatingLogService
	logger  zerolog.Logger
}

// NewCheatingLogHandler constructs the handler.
func NewCheatingLogHandler(service service.CheatingLogService, logger zerolog.Logger) *CheatingLogHandler {
	return &CheatingLogHandler{
		service: service,
		logger:  logger.With().Str("component", "cheating_log_handler").Logger(),
	}
}

// Register attaches cheating log endpoints to the router group.
func (h *CheatingLogHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/summary/:ref", h.summary)
	router.Delete("/:id", h.delete)
}

func (h *CheatingLogHandler) list(c *fiber.Ctx) error {
	filter := repository.CheatingLogFilter{}

	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ExamID = examID

	if email := strings.TrimSpace(c.Query("student_email")); email != "" {
		filter.StudentEmail = &email
	}

	logs, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "cheating logs retrieved", logs)
}

func (h *CheatingLogHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.ExamSummary(c.Context(), c.Params("ref"))
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "exam not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "cheating summary retrieved", summary)
}

func (h *CheatingLogHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrCheatingLogNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "cheating log not found")
		}
		return h.internalError(c, err)
	}

	requestLogger(h.logger, c).Info().Uint("log_id", id).Msg("cheating log deleted")

	return utils.SendSuccess(c, "cheating log deleted", fiber.Map{"id": id})
}

func (h *CheatingLogHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
