package middleware

import (
	"errors"

	"docqa/service"
	"docqa/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const sessionKey = "session"

// LoadSession resolves the :id route parameter and stores the session in the request locals.
func LoadSession(sessions store.SessionStorer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
		}

		session, err := sessions.Get(c.UserContext(), id)
		if errors.Is(err, store.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session "+id.String()+" not found")
		}
		if err != nil {
			return err
		}

		c.Locals(sessionKey, session)
		return c.Next()
	}
}

// RequireDocument rejects questions until the session has a document.
func RequireDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := Session(c)
		if session == nil || !session.DocumentLoaded() {
			return fiber.NewError(fiber.StatusConflict, "upload a PDF document before asking questions")
		}
		return c.Next()
	}
}

// Session returns the session set by LoadSession, or nil.
func Session(c *fiber.Ctx) *service.Session {
	session, _ := c.Locals(sessionKey).(*service.Session)
	return session
}
