// Package iam is the identity bounded context: users and their credentials,
// refresh sessions, OTP challenges, and the token machinery that ties them
// together. Subpackages follow the entity/port + srv + infra split.
package iam

import (
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("IAM")

var (
	CodeUnauthorized = ErrRegistry.Register("UNAUTHORIZED", errx.KindUnauthorized, http.StatusUnauthorized, "Missing or malformed credential")
	CodeInvalidToken = ErrRegistry.Register("INVALID_TOKEN", errx.KindInvalid, http.StatusUnauthorized, "Token invalid")
	CodeExpiredToken = ErrRegistry.Register("EXPIRED_TOKEN", errx.KindExpired, http.StatusUnauthorized, "Token expired")
)

func ErrUnauthorized() *errx.Error { return ErrRegistry.New(CodeUnauthorized) }
func ErrInvalidToken() *errx.Error { return ErrRegistry.New(CodeInvalidToken) }
func ErrExpiredToken() *errx.Error { return ErrRegistry.New(CodeExpiredToken) }
