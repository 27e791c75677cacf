package api

import (
	"errors"
	"io"
	"time"

	"docqa/app/middleware"
	"docqa/loader"
	"docqa/service"
	"docqa/store"
	"docqa/types"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SessionHandler struct {
	sessions store.SessionStorer
	logger   *zap.Logger
}

func NewSessionHandler(sessions store.SessionStorer, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	session, err := h.sessions.Create(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(session.State())
}

func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	return c.JSON(middleware.Session(c).State())
}

func (h *SessionHandler) HandleDelete(c *fiber.Ctx) error {
	id := middleware.Session(c).ID
	if err := h.sessions.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrNotFound(id, "session")
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUpload replaces the session document with the uploaded PDF.
// Extraction failures are reported to the client, the session stays usable.
func (h *SessionHandler) HandleUpload(c *fiber.Ctx) error {
	session := middleware.Session(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}
	if !loader.IsSupported(fileHeader.Filename) && !loader.IsPDFContentType(fileHeader.Header.Get("Content-Type")) {
		return ErrUnsupportedMedia(fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	doc, err := session.LoadDocument(c.UserContext(), fileHeader.Filename, data)
	if err != nil {
		var extractErr *loader.ExtractionError
		if errors.As(err, &extractErr) {
			return ErrExtraction(extractErr)
		}
		return err
	}

	return c.JSON(types.DocumentResponse{
		Document:   doc,
		Characters: len(doc.FullText),
		Message:    "Document '" + doc.Name + "' processed!",
	})
}

func (h *SessionHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	turn, err := middleware.Session(c).Ask(c.UserContext(), params.Question)
	switch {
	case errors.Is(err, service.ErrNoDocument):
		return ErrNoDocument()
	case errors.Is(err, service.ErrEmptyQuestion):
		return NewValidationError(map[string]string{"Question": "failed on 'required' tag"})
	case err != nil:
		return err
	}

	sources := turn.Sources
	if sources == nil {
		sources = []types.ScoredChunk{}
	}
	return c.JSON(types.AnswerResponse{
		Question:  turn.Question.Content,
		Answer:    turn.Answer.Content,
		Error:     turn.Answer.Error,
		Sources:   sources,
		Timestamp: time.Now(),
	})
}

func (h *SessionHandler) HandleMessages(c *fiber.Ctx) error {
	return c.JSON(types.TranscriptResponse{Messages: middleware.Session(c).Messages()})
}
