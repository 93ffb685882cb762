package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/middleware"
	"github.com/noah-isme/proctor-go-api/internal/service"
	"github.com/noah-isme/proctor-go-api/internal/utils"
)

// ProctorHandler wires the proctoring endpoints: session start, the frame
// websocket, and a REST fallback for clients that cannot hold a socket open.
type ProctorHandler struct {
	service service.ProctorService
	logger  zerolog.Logger
}

// NewProctorHandler constructs the handler.
func NewProctorHandler(service service.ProctorService, logger zerolog.Logger) *ProctorHandler {
	return &ProctorHandler{
		service: service,
		logger:  logger.With().Str("component", "proctor_handler").Logger(),
	}
}

// Register binds proctor routes under the provided router group.
func (h *ProctorHandler) Register(router fiber.Router) {
	router.Post("/exams/:ref/session", h.startSession)
	router.Post("/sessions/:session_id/frames", h.postFrame)

	router.Use("/sessions/:session_id/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("correlation_id", middleware.GetCorrelationID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/sessions/:session_id/ws", websocket.New(h.handleConnection))
}

func (h *ProctorHandler) startSession(c *fiber.Ctx) error {
	session, err := h.service.StartSession(c.Context(), requestContext(c), c.Params("ref"))
	if err != nil {
		if accessErr, ok := service.AsAccessError(err); ok {
			return accessDeniedResponse(c, accessErr)
		}
		if errors.Is(err, service.ErrExamNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "exam not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "proctor session started", session)
}

// postFrame is the REST fallback for one classified frame. The detector
// never rejects a frame; alerts due this cycle come back in the response.
func (h *ProctorHandler) postFrame(c *fiber.Ctx) error {
	var frame dto.FrameReport
	if err := c.BodyParser(&frame); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = time.Now().UTC()
	}

	alerts := h.service.HandleFrame(c.Context(), c.Params("session_id"), frame)

	return utils.SendSuccess(c, "frame processed", fiber.Map{"alerts": alerts})
}

func (h *ProctorHandler) handleConnection(conn *websocket.Conn) {
	sessionID := conn.Params("session_id")
	logger := h.logger.With().Str("session_id", sessionID).Logger()

	logger.Info().Msg("proctor websocket connected")
	defer logger.Info().Msg("proctor websocket disconnected")

	for {
		var frame dto.FrameReport
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("proctor websocket read failed")
			}
			return
		}
		if frame.CapturedAt.IsZero() {
			frame.CapturedAt = time.Now().UTC()
		}

		alerts := h.service.HandleFrame(context.Background(), sessionID, frame)
		for _, alert := range alerts {
			if err := conn.WriteJSON(alert); err != nil {
				logger.Warn().Err(err).Msg("proctor websocket write failed")
				return
			}
		}
	}
}
