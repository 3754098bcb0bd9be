package auth

import "fmt"

var (
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrInvalidSigningMethod = fmt.Errorf("invalid signing method")
	ErrMissingSubject       = fmt.Errorf("token has no subject")
	ErrPasswordMismatch     = fmt.Errorf("password does not match")
)
