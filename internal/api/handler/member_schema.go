package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error" example:"User not found"`
}

type registerRequest struct {
	Email    string  `json:"email"    validate:"required"`
	Name     *string `json:"name"`
	Password string  `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type activateRequest struct {
	Email string `json:"email" validate:"required"`
}

// faceRequest is accepted as-is; the endpoint never rejects a payload it can parse.
type faceRequest struct {
	Email string `json:"email"`
}

type successResponse struct {
	Success bool `json:"success" example:"true"`
}

type memberView struct {
	Email  string  `json:"email"`
	Active bool    `json:"active"`
	Name   *string `json:"name,omitempty"`
}

type loginResponse struct {
	Success bool       `json:"success" example:"true"`
	User    memberView `json:"user"`
}
