package echo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

type ActivationService interface {
	Activate(ctx context.Context, plain string) (domain.ActivationToken, error)
	Resend(ctx context.Context, memberID string) (domain.ActivationToken, error)
	Stats(ctx context.Context, batchID string) (domain.ActivationStats, error)
}

type ActivationHandler struct {
	service ActivationService
	logger  logrus.FieldLogger
}

type activationResponse struct {
	MemberID    string             `json:"member_id"`
	Status      domain.TokenStatus `json:"status"`
	ExpiresAt   time.Time          `json:"expires_at"`
	ActivatedAt *time.Time         `json:"activated_at,omitempty"`
}

func NewActivationHandler(service ActivationService, logger logrus.FieldLogger) *ActivationHandler {
	return &ActivationHandler{service: service, logger: logger}
}

func toActivationResponse(token domain.ActivationToken) activationResponse {
	return activationResponse{
		MemberID:    token.MemberID,
		Status:      token.Status,
		ExpiresAt:   token.ExpiresAt,
		ActivatedAt: token.ActivatedAt,
	}
}

func (h *ActivationHandler) Activate(c echo.Context) error {
	token, err := h.service.Activate(c.Request().Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound):
			return respondError(c, http.StatusNotFound, "token_not_found", "activation link is not valid")
		case errors.Is(err, domain.ErrTokenExpired):
			return respondError(c, http.StatusGone, "token_expired", "activation link has expired; ask for a new one")
		case errors.Is(err, domain.ErrTokenSuperseded):
			return respondError(c, http.StatusGone, "token_superseded", "a newer activation link was sent")
		}
		h.logger.WithError(err).Error("activation failed")
		return internalError(c, "failed to activate account")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: toActivationResponse(token)})
}

func (h *ActivationHandler) Resend(c echo.Context) error {
	token, err := h.service.Resend(c.Request().Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidMemberID):
			return respondError(c, http.StatusBadRequest, "invalid_member_id", "id must be a valid UUID")
		case errors.Is(err, app.ErrMemberNotFound):
			return respondError(c, http.StatusNotFound, "not_found", "member not found")
		case errors.Is(err, domain.ErrAlreadyActivated):
			return respondError(c, http.StatusConflict, "already_activated", "member is already active")
		}
		h.logger.WithError(err).WithField("member_id", c.Param("id")).Error("resend activation failed")
		return internalError(c, "failed to resend activation")
	}
	return c.JSON(http.StatusAccepted, apiResponse{Data: toActivationResponse(token)})
}

func (h *ActivationHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidImportID) {
			return respondError(c, http.StatusBadRequest, "invalid_import_id", "id must be a valid UUID")
		}
		h.logger.WithError(err).Error("activation stats failed")
		return internalError(c, "failed to load activation stats")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: stats})
}
