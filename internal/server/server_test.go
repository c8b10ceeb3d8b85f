package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xfe/buddyx/internal/runtime"
)

// fakeRuntime satisfies CommandRuntime for tests without a live actor loop.
type fakeRuntime struct {
	submitted []runtime.Command
	events    chan runtime.Envelope
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{events: make(chan runtime.Envelope, 16)}
}

func (f *fakeRuntime) Submit(cmd runtime.Command)       { f.submitted = append(f.submitted, cmd) }
func (f *fakeRuntime) Events() <-chan runtime.Envelope { return f.events }

func testServer(rt CommandRuntime) *Server {
	cfg := DefaultConfig()
	cfg.Port = 0
	return New(cfg, rt)
}

func TestPostCommandSubmitPromptSubmitsToRuntime(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	body := `{"kind":"submit_prompt","prompt":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fr.submitted, 1)
	assert.Equal(t, runtime.CmdSubmitPrompt, fr.submitted[0].Kind)
	assert.Equal(t, "hello", fr.submitted[0].Prompt)
}

func TestPostCommandApprove(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	body := `{"kind":"approve","approval_id":"appr-1","approval_decision":true}`
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fr.submitted, 1)
	cmd := fr.submitted[0]
	assert.Equal(t, runtime.CmdApprove, cmd.Kind)
	assert.Equal(t, runtime.ApprovalID("appr-1"), cmd.ApprovalID)
	assert.True(t, cmd.ApprovalDecision)
}

func TestPostCommandSetApprovalPolicyUntil(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	deadline := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	body := `{"kind":"set_approval_policy","policy":{"mode":"until","until":"` + deadline + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fr.submitted, 1)
	assert.Equal(t, runtime.CmdSetApprovalPolicy, fr.submitted[0].Kind)
}

func TestPostCommandUnknownKindReturnsBadRequest(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{"kind":"bogus"}`))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fr.submitted)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
}

func TestPostCommandInvalidJSONReturnsBadRequest(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEventStreamsEnvelopesAsSSE(t *testing.T) {
	fr := newFakeRuntime()
	srv := testServer(fr)

	fr.events <- runtime.Envelope{
		Seq:         1,
		TimestampMS: 1000,
		Event:       runtime.Event{Family: runtime.FamilyLifecycle, Name: "Started"},
	}

	req := httptest.NewRequest(http.MethodGet, "/event", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler a moment to write the event, then cancel via the
	// request's context would require a cancellable request; instead we
	// just wait briefly and inspect what's been flushed so far.
	time.Sleep(50 * time.Millisecond)

	body := rec.Body.String()
	assert.Contains(t, body, "event: message")
	assert.Contains(t, body, `"seq":1`)
	assert.Contains(t, body, "Started")
}

func TestSSEWriterWritesHeartbeatComment(t *testing.T) {
	// Exercises sseWriter.writeHeartbeat directly, outside the getEvent
	// handler, checking that a heartbeat is written as an SSE comment line.
	fr := newFakeRuntime()
	_ = fr
	var buf bytes.Buffer
	w := &sseWriter{w: nopResponseWriter{&buf}, flusher: nopFlusher{}, rc: nil}
	w.writeHeartbeat()
	reader := bufio.NewReader(&buf)
	line, _ := reader.ReadString('\n')
	assert.Equal(t, ": heartbeat\n", line)
}

type nopResponseWriter struct{ buf *bytes.Buffer }

func (n nopResponseWriter) Header() http.Header        { return http.Header{} }
func (n nopResponseWriter) Write(p []byte) (int, error) { return n.buf.Write(p) }
func (n nopResponseWriter) WriteHeader(statusCode int)  {}

type nopFlusher struct{}

func (nopFlusher) Flush() {}
