package handlers

import (
	"net/http"

	"github.com/baechuer/taskflow/internal/application/employee"
	"github.com/baechuer/taskflow/internal/application/task"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type TasksHandler struct {
	svc       *task.Service
	employees *employee.Service
}

func NewTasksHandler(svc *task.Service, employees *employee.Service) *TasksHandler {
	return &TasksHandler{svc: svc, employees: employees}
}

// List returns every task for a Scrum Master and the caller's own tasks for
// an employee, newest first.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), p)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToTaskViews(items))
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if !decodeValid(w, r, &req) {
		return
	}
	cmd, err := req.Command()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	t, err := h.svc.Create(r.Context(), p, cmd)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.ToTaskView(t))
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), p, pathID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToTaskView(t))
}

// Replace is PUT: title is required and omitted optional fields are reset.
func (h *TasksHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// Patch is PATCH: only supplied fields change.
func (h *TasksHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *TasksHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if !decodeValid(w, r, &req) {
		return
	}
	cmd, err := req.Command(full)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	t, err := h.svc.Update(r.Context(), p, pathID(r), cmd)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToTaskView(t))
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, pathID(r)); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

// Employees lists employees with their task counts. Scrum Master only.
func (h *TasksHandler) Employees(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.employees.List(r.Context(), p)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEmployeeTasksViews(items))
}
