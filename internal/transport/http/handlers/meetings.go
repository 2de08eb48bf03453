package handlers

import (
	"net/http"

	"github.com/baechuer/taskflow/internal/application/meeting"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type MeetingsHandler struct {
	svc *meeting.Service
}

func NewMeetingsHandler(svc *meeting.Service) *MeetingsHandler {
	return &MeetingsHandler{svc: svc}
}

func (h *MeetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), p)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToMeetingViews(items))
}

func (h *MeetingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.CreateMeetingRequest
	if !decodeValid(w, r, &req) {
		return
	}
	m, err := h.svc.Schedule(r.Context(), p, req.Command())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.ToMeetingView(m))
}

func (h *MeetingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Get(r.Context(), p, pathID(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToMeetingView(m))
}

func (h *MeetingsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *MeetingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *MeetingsHandler) update(w http.ResponseWriter, r *http.Request, full bool) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.UpdateMeetingRequest
	if !decodeValid(w, r, &req) {
		return
	}
	cmd, err := req.Command(full)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	m, err := h.svc.Update(r.Context(), p, pathID(r), cmd)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToMeetingView(m))
}

func (h *MeetingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
