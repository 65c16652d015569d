package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/member-import/internal/application/member"
)

type MemberHandler struct {
	useCase app.GetMember
}

func NewMemberHandler(useCase app.GetMember) *MemberHandler {
	return &MemberHandler{useCase: useCase}
}

func (h *MemberHandler) GetMember(c echo.Context) error {
	out, err := h.useCase.Execute(c.Request().Context(), app.GetMemberInput{
		ID: c.Param("id"),
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidMemberID) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "invalid_member_id",
				Message: "id must be a valid UUID",
			}})
		}
		if errors.Is(err, app.ErrMemberNotFound) {
			return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
				Code:    "not_found",
				Message: "member not found",
			}})
		}

		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to get member",
		}})
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}
