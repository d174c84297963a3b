// Package http exposes the gasless relay over HTTP: a gin server that gates
// submissions behind a CAPTCHA check, and a client for calling it.
package http

import (
	"context"

	paylink "github.com/paylink-foundation/paylink/go"
)

// IntentRelayer validates and submits transaction intents.
type IntentRelayer interface {
	Relay(ctx context.Context, intent paylink.TransactionIntent) (paylink.RelayOutcome, error)
}

// RecaptchaHeader carries the client's CAPTCHA token.
const RecaptchaHeader = "g-recaptcha-token"

// MaxBodyBytes bounds the size of a relay request body
const MaxBodyBytes = 64 << 10

// Error codes returned in the "error" field of a failed response
const (
	ErrorMissingRecaptchaToken = "MISSING_RECAPTCHA_TOKEN"
	ErrorInvalidRecaptchaToken = "INVALID_RECAPTCHA_TOKEN"
	ErrorInvalidBody           = "INVALID_BODY"
	ErrorExecution             = "EXECUTION_ERROR"
	ErrorRateLimited           = "RATE_LIMITED"
	ErrorInternal              = "INTERNAL_SERVER_ERROR"
)

// Response is the body of every relay endpoint response.
type Response struct {
	Status  bool   `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

const (
	messageMissingRecaptchaToken = "The request could not be validated as the Recaptcha token is missing"
	messageInvalidRecaptchaToken = "The request could not be validated as the Recaptcha token is invalid"
	messageEmptyBody             = "The request body must not be empty"
	messageInvalidJSON           = "The request body must be a valid JSON"
	messageBodyTooLarge          = "The request body is too large"
	messageUnreadableBody        = "The request body could not be read"
	messageRateLimited           = "Too many requests. Please try again later."
	messageInternal              = "An internal error occurred. We are investigating the cause of the problem."
)
