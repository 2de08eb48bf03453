package dto

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/baechuer/taskflow/internal/application/execution"
)

type ExecuteRequest struct {
	Code             string  `json:"code" validate:"notblank"`
	Language         string  `json:"language" validate:"notblank"`
	TaskID           TaskRef `json:"task_id"`
	SuccessCondition string  `json:"success_condition"`
}

func (r ExecuteRequest) Request() execution.Request {
	return execution.Request{
		Code:             r.Code,
		Language:         r.Language,
		TaskID:           string(r.TaskID),
		SuccessCondition: r.SuccessCondition,
	}
}

// TaskRef accepts a task id given as a JSON string or number; null is empty.
type TaskRef string

func (t *TaskRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = TaskRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = TaskRef(n.String())
		return nil
	}
	return errors.New("task_id must be a string or number")
}

type ExecuteResponse struct {
	Output      string `json:"output"`
	Error       string `json:"error"`
	TaskUpdated bool   `json:"task_updated"`
}

func ToExecuteResponse(r execution.Result) ExecuteResponse {
	return ExecuteResponse{Output: r.Output, Error: r.Error, TaskUpdated: r.TaskUpdated}
}
