package encoder

import "github.com/courseforge/vod/internal/logging"

// bestEffort runs a cleanup step whose failure must not fail the
// enclosing job. The error is logged and dropped on purpose; anything
// that matters to the job outcome must not go through here.
func bestEffort(log *logging.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		log.Warnf("best-effort %s failed: %v", what, err)
	}
}
