package pickplace

import "github.com/pkg/errors"

// Contract errors. Physical failures (a dropped object, an unreachable pose)
// are never surfaced as Go errors; they end the episode as Failed with a
// Reason code. These errors mark misuse of the engine itself.
var (
	// ErrTargetNotFound is returned by Start when the pose query cannot
	// resolve the requested object ID.
	ErrTargetNotFound = errors.New("target object not found")

	// ErrNotStarted is returned by Step before any successful Start call.
	ErrNotStarted = errors.New("step called before start")
)
