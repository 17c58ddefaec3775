package service

import "github.com/google/uuid"

// newID returns a short random identifier suffix. Prefixes applied at
// the call sites keep session, learner and instructor ids visually
// distinct in logs.
func newID() string {
	return uuid.New().String()[:8]
}
