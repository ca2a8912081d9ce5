package inbound

import (
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/usecase"
	"github.com/samber/lo"
)

// HTTPEndpoint exposes HTTP handlers for email verification.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode issues a one-time code and emails it to the recipient.
// @Summary Request verification code
// @Description Generates a 6-digit code, stores its digest and emails it. A new code replaces any pending one once the resend cooldown has passed.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body RequestCodeRequest true "Request code payload"
// @Success 202 {object} router.successResponse{data=RequestCodeResponse} "Code sent"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Resend cooldown active" example:{"message":"Please wait before requesting a new code","error":{"seconds_remaining":"42"}}
// @Failure 502 {object} router.errorResponse "Email delivery failed"
// @Failure 503 {object} router.errorResponse "Storage unavailable"
// @Router /api/v1/verification/code [post]
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{Email: req.Email})
	if err != nil {
		return nil, err
	}

	return RequestCodeResponse{
		RequestID:         resp.RequestID,
		Email:             resp.Recipient,
		ExpiresAt:         resp.ExpiresAt,
		ResendAvailableAt: resp.ResendAvailableAt,
		MaxAttempts:       resp.MaxAttempts,
	}, nil
}

// SubmitCode verifies a code presented by the recipient.
// @Summary Verify code
// @Description Compares the code with the pending request. Every wrong code consumes one attempt.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body SubmitCodeRequest true "Verify code payload"
// @Success 200 {object} router.successResponse{data=SubmitCodeResponse} "Email verified"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid code" example:{"message":"Invalid verification code","error":{"attempts_remaining":"2"}}
// @Failure 404 {object} router.errorResponse "No pending request"
// @Failure 410 {object} router.errorResponse "Code expired or attempts exhausted"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "Storage unavailable"
// @Router /api/v1/verification/verify [post]
func (h *HTTPEndpoint) SubmitCode(r *router.Request) (any, error) {
	var req SubmitCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SubmitCode(r.Context(), usecase.SubmitCodeInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		return nil, err
	}

	return SubmitCodeResponse{
		Email:      resp.Recipient,
		Verified:   resp.Verified,
		VerifiedAt: resp.VerifiedAt,
	}, nil
}

// Status returns the verification state of an email address.
// @Summary Verification status
// @Tags Verification, Administration
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email address"
// @Success 200 {object} router.successResponse{data=StatusResponse} "Verification status"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/verification/status [get]
func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context(), usecase.StatusInput{Email: r.Query("email")})
	if err != nil {
		return nil, err
	}

	out := StatusResponse{
		Email:      resp.Recipient,
		Verified:   resp.Verified,
		VerifiedAt: resp.VerifiedAt,
	}
	if p := resp.Pending; p != nil {
		out.Pending = &PendingRequestResponse{
			RequestID:         p.RequestID,
			IssuedAt:          p.IssuedAt,
			ExpiresAt:         p.ExpiresAt,
			ResendAvailableAt: p.ResendAvailableAt,
			RemainingAttempts: p.RemainingAttempts,
			Expired:           p.Expired,
		}
	}

	return out, nil
}

// Invalidate discards the pending code of an email address.
// @Summary Invalidate pending code
// @Tags Verification, Administration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InvalidateRequest true "Invalidate payload"
// @Success 200 {object} router.successResponse{data=InvalidateResponse} "Invalidated"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Failure 404 {object} router.errorResponse "No pending request"
// @Router /api/v1/verification/invalidate [post]
func (h *HTTPEndpoint) Invalidate(r *router.Request) (any, error) {
	var req InvalidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Invalidate(r.Context(), usecase.InvalidateInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return InvalidateResponse{}, nil
}

// DeliveryLogs lists recent email deliveries.
// @Summary Email delivery logs
// @Tags Verification, Administration
// @Produce json
// @Security BearerAuth
// @Param email query string false "Filter by email address"
// @Param limit query int false "Maximum rows (1-100, default 20)"
// @Success 200 {object} router.successResponse{data=DeliveryLogsResponse} "Delivery logs"
// @Failure 400 {object} router.errorResponse "Invalid query"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Router /api/v1/verification/delivery-logs [get]
func (h *HTTPEndpoint) DeliveryLogs(r *router.Request) (any, error) {
	limit, err := r.QueryInt32("limit")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.DeliveryLogs(r.Context(), usecase.DeliveryLogsInput{
		Email: r.Query("email"),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	return DeliveryLogsResponse{
		Logs: lo.Map(resp.Logs, func(dl entity.DeliveryLog, _ int) DeliveryLogResponse {
			return DeliveryLogResponse{
				ID:           dl.ID,
				Email:        dl.Recipient,
				Subject:      dl.Subject,
				Template:     dl.Template,
				Status:       dl.Status.String(),
				Provider:     dl.Provider,
				MessageID:    dl.MessageID,
				ErrorMessage: dl.ErrorMessage,
				CreatedAt:    dl.CreatedAt,
				UpdatedAt:    dl.UpdatedAt,
			}
		}),
		limit: limit,
	}, nil
}
