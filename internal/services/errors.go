package services

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	Status  int
	Message string
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Status: http.StatusNotFound, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Status: http.StatusBadRequest, Message: msg}
}

func ErrForbidden(msg string) error {
	return ServiceError{Status: http.StatusForbidden, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Status: http.StatusUnauthorized, Message: msg}
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ConfigurationError reports missing OAuth client credentials. It is fatal
// to a linking flow and never retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// TokenExchangeError carries the redirect URI that was sent with the failed
// authorization-code exchange so mismatches can be diagnosed.
type TokenExchangeError struct {
	RedirectURI string
	Err         error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed (redirect_uri=%s): %v", e.RedirectURI, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

type ChannelDiscoveryError struct {
	Err error
}

func (e *ChannelDiscoveryError) Error() string {
	return fmt.Sprintf("channel discovery failed: %v", e.Err)
}

func (e *ChannelDiscoveryError) Unwrap() error {
	return e.Err
}

// AnalyticsFetchError is per channel and never aborts an aggregation.
type AnalyticsFetchError struct {
	ChannelID string
	Err       error
}

func (e *AnalyticsFetchError) Error() string {
	return fmt.Sprintf("analytics fetch for channel %s: %v", e.ChannelID, e.Err)
}

func (e *AnalyticsFetchError) Unwrap() error {
	return e.Err
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// StatusOf maps an error from this package to an HTTP status and a message
// that is safe to show to the caller.
func StatusOf(err error) (int, string) {
	var svcErr ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Status, svcErr.Message
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusPreconditionFailed, cfgErr.Message
	}
	var exErr *TokenExchangeError
	if errors.As(err, &exErr) {
		return http.StatusBadGateway, exErr.Error()
	}
	var discErr *ChannelDiscoveryError
	if errors.As(err, &discErr) {
		return http.StatusBadGateway, discErr.Error()
	}
	var fetchErr *AnalyticsFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway, fetchErr.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}
