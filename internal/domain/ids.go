package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewConversationID returns an identifier of the form conv_<ms>_<suffix>.
func NewConversationID() string {
	return newID("conv")
}

// NewProblemID returns an identifier of the form problem_<ms>_<suffix>.
func NewProblemID() string {
	return newID("problem")
}

// NewMessageID returns a random message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}
