package model

import "strconv"

// ErrorResponse - { "code": "400", "message": "잘못된 요청입니다.", "validation": { "email": "..." } }
type ErrorResponse struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Validation map[string]string `json:"validation"`
}

func NewErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{
		Code:       strconv.Itoa(status),
		Message:    message,
		Validation: map[string]string{},
	}
}

func (e ErrorResponse) AddValidation(field, message string) ErrorResponse {
	e.Validation[field] = message
	return e
}

type StatusResponse struct {
	Status string `json:"status"`
}

type AuthLogoutResponse struct {
	Status string `json:"status"`
}
