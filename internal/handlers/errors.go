package handlers

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every error returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

// validate runs the registered echo validator. A missing validator is not an error.
func validate(c echo.Context, v any) error {
	err := c.Validate(v)
	if err == nil || errors.Is(err, echo.ErrValidatorNotRegistered) {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return errors.New(fmt.Sprint(he.Message))
	}
	return err
}
