package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/api/metrics"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/ports"
)

const (
	opRegister = "register"
	opLogin    = "login"
	opActivate = "activate"
	opFace     = "face"
)

// MemberHandler exposes the membership operations over HTTP. Errors are
// returned to Echo and rendered by the API error handler.
type MemberHandler struct {
	members ports.MemberService
}

func NewMemberHandler(members ports.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// Register creates a new, inactive member.
//
// @Summary      Register a new member
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Member details"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /register [post]
func (h *MemberHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe(opRegister, err)
	}

	err := h.members.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err := observe(opRegister, err); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Login checks a member's credentials.
//
// @Summary      Login
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /login [post]
func (h *MemberHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe(opLogin, err)
	}

	user, err := h.members.Login(c.Request().Context(), req.Email, req.Password)
	if err := observe(opLogin, err); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Success: true,
		User: memberView{
			Email:  user.Email,
			Active: user.Active,
			Name:   user.Name,
		},
	})
}

// Activate marks a member as paid.
//
// @Summary      Activate a membership after payment
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        body  body      activateRequest  true  "Member to activate"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /activate [post]
func (h *MemberHandler) Activate(c echo.Context) error {
	var req activateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return observe(opActivate, err)
	}

	err := h.members.Activate(c.Request().Context(), req.Email)
	if err := observe(opActivate, err); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// Face is the face-verification placeholder; it always succeeds.
//
// @Summary      Face verification (stub)
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        body  body      faceRequest  true  "Member requesting verification"
// @Success      200   {object}  successResponse
// @Router       /face [post]
func (h *MemberHandler) Face(c echo.Context) error {
	var req faceRequest
	if err := c.Bind(&req); err != nil {
		if malformedJSON(err) {
			return observe(opFace, echo.NewHTTPError(http.StatusBadRequest, "invalid payload"))
		}
		req = faceRequest{}
	}

	err := h.members.VerifyFace(c.Request().Context(), req.Email)
	if err := observe(opFace, err); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// bindAndValidate decodes the body into req and checks its required fields.
// A schema violation is reported as domain.ErrMissingFields.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMissingFields, err)
	}
	return nil
}

// malformedJSON reports whether a bind error came from a JSON body that could
// not be parsed at all. Other content types and mistyped fields do not count.
func malformedJSON(err error) bool {
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// observe counts the outcome of op and passes err through unchanged.
func observe(op string, err error) error {
	metrics.MemberOperationsTotal.WithLabelValues(op, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidPassword):
		return "forbidden"
	case errors.As(err, &he):
		return "invalid_payload"
	default:
		return "error"
	}
}
