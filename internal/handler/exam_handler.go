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

// ExamHandler wires exam and question HTTP routes. Question reads go through
// the access gate; exams can be referenced by numeric ID or legacy code.
type ExamHandler struct {
	exams  service.ExamService
	access service.AccessService
	logger zerolog.Logger
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams service.ExamService, access service.AccessService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams:  exams,
		access: access,
		logger: logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches exam endpoints reachable by any authenticated user.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:ref", h.get)
	router.Get("/:ref/questions", h.questions)
	router.Post("/:ref/access-code", h.validateAccessCode)
}

// RegisterTeacher attaches exam management endpoints.
func (h *ExamHandler) RegisterTeacher(router fiber.Router) {
	router.Post("", h.create)
	router.Patch("/:ref", h.update)
	router.Delete("/:ref", h.delete)
	router.Post("/:ref/questions", h.addQuestion)
	router.Delete("/questions/:id", h.deleteQuestion)
}

func (h *ExamHandler) list(c *fiber.Ctx) error {
	exams, err := h.exams.List(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	exam, err := h.exams.Get(c.Context(), c.Params("ref"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) questions(c *fiber.Ctx) error {
	questions, err := h.access.CanViewQuestions(c.Context(), requestContext(c), c.Params("ref"))
	if err != nil {
		if accessErr, ok := service.AsAccessError(err); ok {
			return accessDeniedResponse(c, accessErr)
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *ExamHandler) validateAccessCode(c *fiber.Ctx) error {
	var payload dto.AccessCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.access.ValidateAccessCode(c.Context(), requestContext(c), c.Params("ref"), payload.Code); err != nil {
		if errors.Is(err, service.ErrInvalidAccessCode) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid access code")
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "access code accepted", fiber.Map{"granted": true})
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.exams.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	exam, err := h.exams.Update(c.Context(), c.Params("ref"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *ExamHandler) delete(c *fiber.Ctx) error {
	if err := h.exams.Delete(c.Context(), c.Params("ref")); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "exam deleted", fiber.Map{"ref": c.Params("ref")})
}

func (h *ExamHandler) addQuestion(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.exams.AddQuestion(c.Context(), c.Params("ref"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question added", fiber.Map{"id": question.ID})
}

func (h *ExamHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.exams.DeleteQuestion(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question deleted", fiber.Map{"id": id})
}

func (h *ExamHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrInvalidExamWindow), errors.Is(err, service.ErrInvalidQuestion):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *ExamHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
