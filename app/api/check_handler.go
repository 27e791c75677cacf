package api

import (
	"github.com/gofiber/fiber/v2"
)

type SessionCounter interface {
	Len() int
}

type CheckHandler struct {
	sessions SessionCounter
}

func NewCheckHandler(sessions SessionCounter) *CheckHandler {
	return &CheckHandler{sessions: sessions}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok", "sessions": h.sessions.Len()})
}
