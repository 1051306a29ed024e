package canon

import (
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
)

// Debug canonicalizes text like CanonicalizePattern and logs every
// intermediate step to logger at Debug level: the sanitized input, the atom
// tokens and their scores, and the enumerated and sorted path scores.
func Debug(text string, logger logging.Logger, opts ...Option) (*PatternResult, error) {
	if logger == nil {
		logger = logging.Default()
	}
	opts = append(opts[:len(opts):len(opts)], WithVerbose(logger.Named("canon")))
	return CanonicalizePattern(text, opts...)
}

//Personal.AI order the ending
