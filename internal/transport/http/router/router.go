package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/taskflow/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 20

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	RegisterEmployee(w http.ResponseWriter, r *http.Request)
	RegisterScrumMaster(w http.ResponseWriter, r *http.Request)
}

type TasksHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Replace(w http.ResponseWriter, r *http.Request)
	Patch(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Employees(w http.ResponseWriter, r *http.Request)
}

type EmployeesHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type MeetingsHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Replace(w http.ResponseWriter, r *http.Request)
	Patch(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type CodeHandler interface {
	Execute(w http.ResponseWriter, r *http.Request)
}

type TelemetryHandler interface {
	Batch(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health    HealthHandler
	Auth      AuthHandler
	Tasks     TasksHandler
	Employees EmployeesHandler
	Meetings  MeetingsHandler
	Code      CodeHandler
	Telemetry TelemetryHandler

	AuthMW func(http.Handler) http.Handler
	// Optional; nil means unlimited.
	AuthRateMW func(http.Handler) http.Handler
	ExecRateMW func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Tasks == nil {
		return nil, fmt.Errorf("nil Tasks handler")
	}
	if deps.Employees == nil {
		return nil, fmt.Errorf("nil Employees handler")
	}
	if deps.Meetings == nil {
		return nil, fmt.Errorf("nil Meetings handler")
	}
	if deps.Code == nil {
		return nil, fmt.Errorf("nil Code handler")
	}
	if deps.Telemetry == nil {
		return nil, fmt.Errorf("nil Telemetry handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	authRate := orPassThrough(deps.AuthRateMW)
	execRate := orPassThrough(deps.ExecRateMW)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RequestSize(maxBodyBytes))

	r.Get("/healthz", deps.Health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(authRate)
		r.Post("/login", deps.Auth.Login)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Post("/register/employee", deps.Auth.RegisterEmployee)
		r.Post("/register/scrum-master", deps.Auth.RegisterScrumMaster)
	})

	// telemetry is accepted without a token
	r.Post("/events/batch", deps.Telemetry.Batch)

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMW)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", deps.Tasks.List)
			r.Post("/", deps.Tasks.Create)
			r.Get("/employees", deps.Tasks.Employees)
			r.Get("/{id}", deps.Tasks.Get)
			r.Put("/{id}", deps.Tasks.Replace)
			r.Patch("/{id}", deps.Tasks.Patch)
			r.Delete("/{id}", deps.Tasks.Delete)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", deps.Employees.List)
			r.Get("/{id}", deps.Employees.Get)
			r.Put("/{id}", deps.Employees.Update)
			r.Patch("/{id}", deps.Employees.Update)
			r.Delete("/{id}", deps.Employees.Delete)
		})

		r.Route("/meetings", func(r chi.Router) {
			r.Get("/", deps.Meetings.List)
			r.Post("/", deps.Meetings.Create)
			r.Get("/{id}", deps.Meetings.Get)
			r.Put("/{id}", deps.Meetings.Replace)
			r.Patch("/{id}", deps.Meetings.Patch)
			r.Delete("/{id}", deps.Meetings.Delete)
		})

		r.With(execRate).Post("/code/execute", deps.Code.Execute)
	})

	return r, nil
}

func orPassThrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
