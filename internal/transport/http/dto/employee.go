package dto

import "github.com/baechuer/taskflow/internal/domain"

type UpdateEmployeeRequest struct {
	Username string `json:"username" validate:"notblank,max=150"`
}

type EmployeeView struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	TasksCount int    `json:"tasks_count"`
}

// EmployeeTasksView is the /tasks/employees row shape.
type EmployeeTasksView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Tasks    int    `json:"tasks"`
}

func ToEmployeeView(e domain.EmployeeSummary) EmployeeView {
	return EmployeeView{ID: e.ID, Username: e.Username, TasksCount: e.TaskCount}
}

func ToEmployeeViews(es []domain.EmployeeSummary) []EmployeeView {
	out := make([]EmployeeView, 0, len(es))
	for _, e := range es {
		out = append(out, ToEmployeeView(e))
	}
	return out
}

func ToEmployeeTasksViews(es []domain.EmployeeSummary) []EmployeeTasksView {
	out := make([]EmployeeTasksView, 0, len(es))
	for _, e := range es {
		out = append(out, EmployeeTasksView{ID: e.ID, Username: e.Username, Tasks: e.TaskCount})
	}
	return out
}
