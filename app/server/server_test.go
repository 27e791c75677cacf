package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"docqa/app/agent"
	"docqa/loader"
	"docqa/model"
	"docqa/service"
	"docqa/store"
	"docqa/types"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(_ context.Context, name string, _ []byte) (types.Document, error) {
	if s.err != nil {
		return types.Document{}, &loader.ExtractionError{Name: name, Err: s.err}
	}
	return types.Document{Name: name, Pages: 2, FullText: s.text}, nil
}

type stubCompleter struct {
	answer string
	err    error
}

func (s *stubCompleter) Complete(context.Context, string) (string, error) {
	return s.answer, s.err
}

type testEnv struct {
	app       *fiber.App
	extractor *stubExtractor
	completer *stubCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, zap.NewNop())
}

func newTestEnvWithLogger(t *testing.T, logger *zap.Logger) *testEnv {
	t.Helper()
	env := &testEnv{
		extractor: &stubExtractor{text: "The cat sat on the mat. The dog ran fast."},
		completer: &stubCompleter{answer: "On the mat."},
	}
	svc := service.New(env.extractor, agent.NewSynthesizer(env.completer, nil), service.Options{}, nil)
	env.app = NewApp(store.NewMemoryStore(svc, nil), 1, logger)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	status, body := e.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, false, body["document_loaded"])
	return body["id"].(string)
}

func uploadRequest(t *testing.T, id, filename string, content []byte) *http.Request {
	t.Helper()
	return uploadTypedRequest(t, id, filename, "application/octet-stream", content)
}

func uploadTypedRequest(t *testing.T, id, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func askRequest(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthy(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/check/healthy", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["result"])
}

func TestUploadAndAsk(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, body := env.do(t, uploadRequest(t, id, "pets.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Document 'pets.pdf' processed!", body["message"])

	status, body = env.do(t, askRequest(id, `{"question":"Where did the cat sit?"}`))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "On the mat.", body["answer"])
	assert.Equal(t, false, body["error"])
	require.Len(t, body["sources"], 1)

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/messages", nil))
	require.Equal(t, http.StatusOK, status)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Where did the cat sit?", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "On the mat.", msgs[1].(map[string]any)["content"])

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["document_loaded"])
	assert.EqualValues(t, 2, body["message_count"])
}

func TestAskBeforeUpload(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, _ := env.do(t, askRequest(id, `{"question":"anything?"}`))
	assert.Equal(t, http.StatusConflict, status)
}

func TestAskValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	status, _ := env.do(t, uploadRequest(t, id, "a.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, askRequest(id, `{"question":""}`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"], "Question")

	status, _ = env.do(t, askRequest(id, `{not json`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAskSynthesisFailure(t *testing.T) {
	env := newTestEnv(t)
	env.completer.err = &model.StatusError{Code: 503, Body: "overloaded"}
	id := env.createSession(t)
	status, _ := env.do(t, uploadRequest(t, id, "a.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, askRequest(id, `{"question":"cat?"}`))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Error: 503 - overloaded", body["answer"])
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, _ := env.do(t, uploadRequest(t, id, "notes.txt", []byte("plain")))
	assert.Equal(t, http.StatusUnsupportedMediaType, status)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", nil)
	status, _ = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)

	env.extractor.err = errors.New("malformed xref table")
	status, body := env.do(t, uploadRequest(t, id, "broken.pdf", []byte("garbage")))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["error"], "malformed xref table")

	// the session survives the failed upload
	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["document_loaded"])
}

func TestUnknownAndInvalidSession(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/7f1c4b4e-2b7e-4d8a-9a53-3f0f0d3c1a11/messages", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUploadByContentType(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	status, body := env.do(t, uploadTypedRequest(t, id, "report", "application/pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Document 'report' processed!", body["message"])

	status, _ = env.do(t, uploadTypedRequest(t, id, "report", "text/plain", []byte("plain")))
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
}

func TestRequestLogHasErrorStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env := newTestEnvWithLogger(t, zap.New(core))
	id := env.createSession(t)

	status, _ := env.do(t, uploadRequest(t, id, "notes.txt", []byte("plain")))
	require.Equal(t, http.StatusUnsupportedMediaType, status)

	status, _ = env.do(t, askRequest(id, `{"question":"anything?"}`))
	require.Equal(t, http.StatusConflict, status)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 3)
	assert.EqualValues(t, http.StatusCreated, entries[0].ContextMap()["status"])
	assert.EqualValues(t, http.StatusUnsupportedMediaType, entries[1].ContextMap()["status"])
	assert.Equal(t, "/api/v1/sessions/"+id+"/document", entries[1].ContextMap()["path"])
	assert.EqualValues(t, http.StatusConflict, entries[2].ContextMap()["status"])
}
