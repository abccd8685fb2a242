package utils

import (
	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier such as "reg_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
