package services

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/i-am-the-robot/Edulife/internal/pkg/errors"
	"github.com/i-am-the-robot/Edulife/internal/platform/apierr"
)

var (
	ErrNotFound        = pkgerrors.ErrNotFound
	ErrInvalidArgument = pkgerrors.ErrInvalidArgument
	ErrUnauthorized    = pkgerrors.ErrUnauthorized
)

func notFound(what string) error {
	return apierr.New(http.StatusNotFound, what+"_not_found", fmt.Errorf("%s %w", what, ErrNotFound))
}

func invalid(code, msg string) error {
	return apierr.New(http.StatusBadRequest, code, fmt.Errorf("%s: %w", msg, ErrInvalidArgument))
}

func conflict(code, msg string) error {
	return apierr.New(http.StatusConflict, code, errors.New(msg))
}

func forbidden(code, msg string) error {
	return apierr.New(http.StatusForbidden, code, errors.New(msg))
}

func unauthorized(code, msg string) error {
	return apierr.New(http.StatusUnauthorized, code, fmt.Errorf("%s: %w", msg, ErrUnauthorized))
}
