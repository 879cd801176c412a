package uid

import "github.com/google/uuid"

// New returns a time-ordered identifier, so trade and request ids sort by
// creation in logs and listings.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
