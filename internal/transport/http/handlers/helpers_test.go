package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/taskflow/internal/application/auth"
	"github.com/baechuer/taskflow/internal/application/employee"
	"github.com/baechuer/taskflow/internal/application/execution"
	"github.com/baechuer/taskflow/internal/application/meeting"
	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/infrastructure/memory"
	"github.com/baechuer/taskflow/internal/infrastructure/security"
	appCtx "github.com/baechuer/taskflow/internal/pkg/context"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// mustReadJSON decodes the recorder body into out.
func mustReadJSON(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "body=%s", rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	mustReadJSON(t, rr, &body)
	return body.Error.Code
}

// withURLParam sets a chi URL parameter on the request, as the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func as(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(appCtx.WithPrincipal(r.Context(), p))
}

type fakeRunner struct {
	mu     sync.Mutex
	result execution.RunResult
	err    error
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, _ execution.Program) (execution.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

// harness wires the real services on the memory stores.
type harness struct {
	db        *memory.DB
	auth      *auth.Service
	tasks     *task.Service
	employees *employee.Service
	meetings  *meeting.Service
	engine    *execution.Engine
	runner    *fakeRunner

	sm, alice, bob domain.Principal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memory.NewDB()
	users := memory.NewUserRepo(db)
	sessions := memory.NewSessionStore()
	pub := memory.NewNoopPublisher()
	taskRepo := memory.NewTaskRepo(db)

	h := &harness{
		db:     db,
		runner: &fakeRunner{},
		auth: auth.NewService(users, security.NewBcryptHasher(4),
			security.NewJWTSigner("test-secret", "taskflow"), sessions, auth.Config{}),
		tasks:     task.New(taskRepo, users, pub, nil),
		employees: employee.New(users, sessions),
		meetings:  meeting.New(memory.NewMeetingRepo(db), pub, nil),
	}
	h.engine = execution.NewEngine(h.runner, taskRepo, pub, nil, execution.Config{MaxConcurrent: 2})

	ctx := context.Background()
	reg := func(fn func(context.Context, string, string) (auth.RegisterResult, error), name string) domain.Principal {
		res, err := fn(ctx, name, "secret-pass")
		require.NoError(t, err)
		return domain.PrincipalOf(&res.User)
	}
	h.sm = reg(h.auth.RegisterScrumMaster, "boss")
	h.alice = reg(h.auth.RegisterEmployee, "alice")
	h.bob = reg(h.auth.RegisterEmployee, "bob")
	return h
}

func (h *harness) seedTask(t *testing.T, owner domain.Principal, title string) string {
	t.Helper()
	tk, err := h.tasks.Create(context.Background(), owner, task.CreateCmd{Title: title, AssignedTo: owner.UserID})
	require.NoError(t, err)
	return tk.ID
}
