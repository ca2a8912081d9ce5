package inbound

import (
	"net/http"
	"time"
)

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct {
	RequestID         string    `json:"request_id"`
	Email             string    `json:"email"`
	ExpiresAt         time.Time `json:"expires_at"`
	ResendAvailableAt time.Time `json:"resend_available_at"`
	MaxAttempts       int       `json:"max_attempts"`
}

func (RequestCodeResponse) StatusCode() int {
	return http.StatusAccepted
}

func (RequestCodeResponse) Message() string {
	return "Verification code has been sent. Please check your email."
}

type SubmitCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SubmitCodeResponse struct {
	Email      string    `json:"email"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

func (SubmitCodeResponse) Message() string {
	return "Email has been verified."
}

type PendingRequestResponse struct {
	RequestID         string    `json:"request_id"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	ResendAvailableAt time.Time `json:"resend_available_at"`
	RemainingAttempts int       `json:"remaining_attempts"`
	Expired           bool      `json:"expired"`
}

type StatusResponse struct {
	Email      string                  `json:"email"`
	Verified   bool                    `json:"verified"`
	VerifiedAt *time.Time              `json:"verified_at,omitempty"`
	Pending    *PendingRequestResponse `json:"pending,omitempty"`
}

type InvalidateRequest struct {
	Email string `json:"email"`
}

type InvalidateResponse struct{}

func (InvalidateResponse) Message() string {
	return "Pending verification request has been invalidated."
}

type DeliveryLogResponse struct {
	ID           int64     `json:"id,string"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject"`
	Template     string    `json:"template"`
	Status       string    `json:"status"`
	Provider     string    `json:"provider"`
	MessageID    string    `json:"message_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DeliveryLogsResponse struct {
	Logs []DeliveryLogResponse `json:"logs"`
	// meta
	limit int32
}

func (r DeliveryLogsResponse) Meta() map[string]any {
	return map[string]any{
		"count": len(r.Logs),
		"limit": r.limit,
	}
}
