// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/bachelorbari/bachelorbari/internal/model"
)

// Response status and messages.
const (
	StatusSuccess = "success"

	MessageRegistered       = "User registered successfully"
	MessageLoggedIn         = "Login successful"
	MessageUnauthenticated  = "Unauthenticated."
	MessageServerError      = "Server Error"
	MessageUnavailable      = "Service Unavailable"
	MessageNotFound         = "Not Found"
	MessageMethodNotAllowed = "Method Not Allowed"
	MessageInvalidJSON      = "The request body must be valid JSON."
)

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// ErrorsResponse lists messages per field.
type ErrorsResponse struct {
	Errors map[string][]string `json:"errors"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
