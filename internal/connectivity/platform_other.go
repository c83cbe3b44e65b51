//go:build !linux

package connectivity

import "github.com/slok/tasksync/internal/log"

// NewPlatformSource returns an always online source, link state tracking is
// only available on Linux.
func NewPlatformSource(logger log.Logger) (Source, error) {
	if logger == nil {
		logger = log.Noop
	}
	logger.Warningf("Platform connectivity tracking is only available on Linux, assuming online")

	return NewManualSource(true), nil
}
