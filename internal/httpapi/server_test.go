package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ent0n29/interviewer/internal/azure"
	"github.com/ent0n29/interviewer/internal/config"
	"github.com/ent0n29/interviewer/internal/interview"
	"github.com/ent0n29/interviewer/internal/llm"
	"github.com/ent0n29/interviewer/internal/memory"
	"github.com/ent0n29/interviewer/internal/observability"
	"github.com/ent0n29/interviewer/internal/prompt"
	"github.com/ent0n29/interviewer/internal/session"
)

type failingBackend struct{ status int }

func (failingBackend) Provider() string { return "failing" }

func (b failingBackend) Complete(context.Context, []llm.Message) (llm.Message, error) {
	return llm.Message{}, &llm.BackendError{Provider: "failing", StatusCode: b.status, Err: errors.New("upstream down")}
}

type fakeTokens struct{}

func (fakeTokens) Configured() bool { return true }

func (fakeTokens) Issue(context.Context) (azure.Token, error) {
	return azure.Token{Token: "tok", Region: "westeurope"}, nil
}

type testEnv struct {
	ts  *httptest.Server
	now atomic.Int64
}

func (e *testEnv) advance(d time.Duration) { e.now.Add(int64(d)) }

func newTestEnv(t *testing.T, cfg config.Config, backend llm.Backend) *testEnv {
	t.Helper()
	if cfg.InterviewDuration == 0 {
		cfg.InterviewDuration = 30 * time.Minute
	}
	env := &testEnv{}
	env.now.Store(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC).UnixNano())

	metrics := observability.NewMetricsWith("test_httpapi", prometheus.NewRegistry())
	transcript := memory.NewTranscript(memory.NewInMemoryStore(), 0)
	clock := session.NewClock(session.NewMemoryStore(), transcript, cfg.InterviewDuration)
	clock.SetNowFunc(func() time.Time { return time.Unix(0, env.now.Load()).UTC() })
	svc := interview.NewService(clock, prompt.NewCache(backend), prompt.Builder{}, transcript, metrics)

	srv := New(cfg, svc, metrics, Options{Tokens: fakeTokens{}, Provider: backend.Provider()})
	env.ts = httptest.NewServer(srv.Router())
	t.Cleanup(env.ts.Close)
	return env
}

func postJSON(t *testing.T, url string, body any, headers map[string]string) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func startInterview(t *testing.T, env *testEnv, headers map[string]string) string {
	t.Helper()
	res := postJSON(t, env.ts.URL+"/v1/interviews", map[string]string{
		"job_description": "Senior Go engineer",
		"resume":          "Jane Doe, 6 years of Go",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created startInterviewResponse
	decodeBody(t, res, &created)
	if created.InterviewID == "" {
		t.Fatalf("missing interview_id in start response: %+v", created)
	}
	return created.InterviewID
}

func TestInterviewLifecycle(t *testing.T) {
	env := newTestEnv(t, config.Config{InterviewDuration: 10 * time.Minute}, llm.NewMockBackend())
	id := startInterview(t, env, nil)
	base := env.ts.URL + "/v1/interviews/" + id

	res := postJSON(t, base+"/turns", map[string]string{"input": "Hello, I'm Jane."}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var turn turnResponse
	decodeBody(t, res, &turn)
	if turn.Message.Content == "" || turn.Tier != "none" {
		t.Fatalf("unexpected turn response: %+v", turn)
	}

	env.advance(8 * time.Minute)
	res = postJSON(t, base+"/turns", map[string]string{"input": "I led the payments migration."}, nil)
	decodeBody(t, res, &turn)
	if turn.Tier != "warn_80" {
		t.Fatalf("tier = %q, want warn_80", turn.Tier)
	}

	clockRes, err := http.Get(base + "/clock")
	if err != nil {
		t.Fatalf("GET clock error = %v", err)
	}
	var clock clockResponse
	decodeBody(t, clockRes, &clock)
	if clock.ElapsedMS != (8*time.Minute).Milliseconds() || clock.Ended {
		t.Fatalf("unexpected clock: %+v", clock)
	}

	histRes, err := http.Get(base + "/history")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	var hist historyResponse
	decodeBody(t, histRes, &hist)
	if len(hist.Messages) != 5 {
		t.Fatalf("history len = %d, want 5: %+v", len(hist.Messages), hist.Messages)
	}
	if hist.Messages[2].Role != "system" {
		t.Fatalf("history[2].role = %q, want system", hist.Messages[2].Role)
	}

	endRes := postJSON(t, base+"/end", nil, nil)
	endRes.Body.Close()
	if endRes.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want %d", endRes.StatusCode, http.StatusOK)
	}

	res = postJSON(t, base+"/turns", map[string]string{"input": "One more thing"}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("post-end turn status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	var errBody errorResponse
	decodeBody(t, res, &errBody)
	if errBody.Code != "interview_ended" || errBody.Error != session.EndedMessage {
		t.Fatalf("unexpected error body: %+v", errBody)
	}
}

func TestStartRejectsMissingContext(t *testing.T) {
	env := newTestEnv(t, config.Config{}, llm.NewMockBackend())
	res := postJSON(t, env.ts.URL+"/v1/interviews", map[string]string{"job_description": "JD"}, nil)
	var errBody errorResponse
	decodeBody(t, res, &errBody)
	if res.StatusCode != http.StatusBadRequest || errBody.Code != "invalid_request" {
		t.Fatalf("status = %d body = %+v", res.StatusCode, errBody)
	}
}

func TestUnknownInterviewIs404(t *testing.T) {
	env := newTestEnv(t, config.Config{}, llm.NewMockBackend())
	res := postJSON(t, env.ts.URL+"/v1/interviews/does-not-exist/turns", map[string]string{"input": "hi"}, nil)
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestBackendFailureIs502(t *testing.T) {
	env := newTestEnv(t, config.Config{}, failingBackend{status: http.StatusServiceUnavailable})
	id := startInterview(t, env, nil)

	res := postJSON(t, env.ts.URL+"/v1/interviews/"+id+"/turns", map[string]string{"input": "hi"}, nil)
	var errBody errorResponse
	decodeBody(t, res, &errBody)
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
	if errBody.Code != "model_backend_error" || !errBody.Retryable {
		t.Fatalf("unexpected error body: %+v", errBody)
	}
}

func TestAPIKeyRequiredWhenConfigured(t *testing.T) {
	env := newTestEnv(t, config.Config{APIKey: "s3cret"}, llm.NewMockBackend())

	res := postJSON(t, env.ts.URL+"/v1/interviews", map[string]string{"job_description": "JD", "resume": "CV"}, nil)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	id := startInterview(t, env, map[string]string{"Authorization": "Bearer s3cret"})

	health, err := http.Get(env.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", health.StatusCode, http.StatusOK)
	}

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/v1/azure/token", nil)
	req.Header.Set("X-API-Key", "s3cret")
	req.Header.Set("X-Interview-ID", id)
	tokRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET token error = %v", err)
	}
	var tok azure.Token
	decodeBody(t, tokRes, &tok)
	if tokRes.StatusCode != http.StatusOK || tok.Token != "tok" {
		t.Fatalf("token status = %d body = %+v", tokRes.StatusCode, tok)
	}
}

func TestAzureTokenRequiresInterview(t *testing.T) {
	env := newTestEnv(t, config.Config{}, llm.NewMockBackend())
	res, err := http.Get(env.ts.URL + "/v1/azure/token")
	if err != nil {
		t.Fatalf("GET token error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestInterviewWebsocket(t *testing.T) {
	env := newTestEnv(t, config.Config{}, llm.NewMockBackend())
	id := startInterview(t, env, nil)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/v1/interviews/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(map[string]string{"type": "client_turn", "input": "I write Go."}); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply["type"] != "interviewer_message" || reply["text"] == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	if err := conn.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	var errEvent map[string]any
	if err := conn.ReadJSON(&errEvent); err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if errEvent["type"] != "error_event" || errEvent["code"] != "invalid_client_message" {
		t.Fatalf("unexpected error event: %+v", errEvent)
	}

	if err := conn.WriteJSON(map[string]string{"type": "client_control", "action": "end"}); err != nil {
		t.Fatalf("write end: %v", err)
	}
	var ended map[string]any
	if err := conn.ReadJSON(&ended); err != nil {
		t.Fatalf("read system event: %v", err)
	}
	if ended["type"] != "system_event" || ended["code"] != "interview_ended" {
		t.Fatalf("unexpected system event: %+v", ended)
	}
}
