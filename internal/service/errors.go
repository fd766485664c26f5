package service

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Error kinds shared by all services. Handlers map each kind to exactly
// one HTTP status, so a given failure surfaces with the same code on
// every route.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUpstream           = errors.New("upstream service failed")
)

// isUniqueViolation reports whether err came from a unique-constraint
// violation. GORM translates these for most dialects; the raw pq error
// code and the sqlite message are checked for drivers where it does not.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
