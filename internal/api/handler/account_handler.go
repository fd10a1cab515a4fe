package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linkloot/affiliate-api/internal/core/ports"
)

// AccountHandler serves signup, login and profile lookups.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Signup creates a new account.
//
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /signup [post]
func (h *AccountHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		return opError("An error occurred during signup.", err)
	}

	return c.JSON(http.StatusCreated, signupResponse{
		Message: "Account created successfully!",
		User:    toUserSummary(user),
	})
}

// Login checks a credential and returns the user summary. No session or
// token is issued; clients pass the user id explicitly afterwards.
//
// @Summary      Verify credentials
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return opError("An error occurred during login.", err)
	}

	return c.JSON(http.StatusOK, loginResponse{
		Message: "Login successful!",
		User:    toUserSummary(user),
	})
}

// GetUser returns a user summary.
//
// @Summary      Fetch a user
// @Tags         accounts
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userSummary
// @Failure      404  {object}  errorResponse
// @Router       /get_user/{id} [get]
func (h *AccountHandler) GetUser(c echo.Context) error {
	user, err := h.accounts.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return opError("Could not fetch user data.", err)
	}
	return c.JSON(http.StatusOK, toUserSummary(user))
}
