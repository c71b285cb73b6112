package platform

import (
	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// IsID reports whether s is a UUID in any of the forms uuid.Parse accepts.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
