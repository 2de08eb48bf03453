package handlers

import (
	"net/http"

	"github.com/baechuer/taskflow/internal/application/execution"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type CodeHandler struct {
	engine *execution.Engine
}

func NewCodeHandler(engine *execution.Engine) *CodeHandler {
	return &CodeHandler{engine: engine}
}

// Execute answers 200 for every program outcome; only request validation,
// busy slots and storage failures produce an error status.
func (h *CodeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	p, ok := actor(w, r)
	if !ok {
		return
	}
	var req dto.ExecuteRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.engine.Execute(r.Context(), p, req.Request())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.ToExecuteResponse(res))
}
