package archive

import "github.com/okian/cfduel/pkg/logger"

// defaultMaxRecent bounds how many finalized duels are retained.
const defaultMaxRecent = 20

type settings struct {
	maxRecent int
	logger    logger.Logger
}

// Option applies a configuration option to an archive backend.
type Option func(*settings)

// WithMaxRecent sets the retention bound.
func WithMaxRecent(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRecent = n
		}
	}
}

// WithLogger sets a custom logger for the backend.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(opts ...Option) settings {
	s := settings{maxRecent: defaultMaxRecent}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Named("archive")
	}
	return s
}
