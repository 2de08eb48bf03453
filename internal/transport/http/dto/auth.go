package dto

// -------- Auth --------

type CredentialsRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"notblank"`
}

type LoginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}
