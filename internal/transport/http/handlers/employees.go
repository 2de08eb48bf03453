package handlers

import (
	"net/http"

	"github.com/baechuer/taskflow/internal/application/employee"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type EmployeesHandler struct {
	svc *employee.Service
}

func NewEmployeesHandler(svc *employee.Service) *EmployeesHandler {
	return &EmployeesHandler{svc: svc}
}

func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), p)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEmployeeViews(items))
}

func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	e, err := h.svc.Get(r.Context(), p, pathID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEmployeeView(e))
}

// Update serves both PUT and PATCH; username is the only writable field.
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.UpdateEmployeeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	e, err := h.svc.Rename(r.Context(), p, pathID(r), req.Username)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToEmployeeView(e))
}

func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
