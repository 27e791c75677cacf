package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Validater interface {
	Validate() map[string]string
}

type QueryParams struct {
	Question string `json:"question" validate:"required,max=4000"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *QueryParams) Validate() map[string]string {
	return validateStruct(params)
}

func validateStruct(v any) map[string]string {
	if err := validate.Struct(v); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"request": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type SessionResponse struct {
	ID             string    `json:"id"`
	DocumentLoaded bool      `json:"document_loaded"`
	Document       *Document `json:"document,omitempty"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type DocumentResponse struct {
	Document   Document `json:"document"`
	Characters int      `json:"characters"`
	Message    string   `json:"message"`
}

type AnswerResponse struct {
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Error     bool          `json:"error"`
	Sources   []ScoredChunk `json:"sources"`
	Timestamp time.Time     `json:"timestamp"`
}

type TranscriptResponse struct {
	Messages []Message `json:"messages"`
}
