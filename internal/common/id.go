package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a URL-safe unique run identifier.
func NewRunID() string {
	return uuid.New().String()
}
