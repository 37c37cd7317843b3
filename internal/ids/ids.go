// Package ids generates record identifiers: a base36 millisecond timestamp
// followed by a random suffix.
package ids

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLength = 11

// New returns an identifier for the current instant.
func New() string {
	return at(time.Now())
}

// NewGenerator returns an identifier source driven by the given clock.
func NewGenerator(now func() time.Time) func() string {
	if now == nil {
		now = time.Now
	}
	return func() string {
		return at(now())
	}
}

func at(t time.Time) string {
	prefix := strconv.FormatInt(t.UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + suffix[:suffixLength]
}
