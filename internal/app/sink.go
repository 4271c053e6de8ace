package service

import (
	"context"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
)

// logSink is the default announcement destination: structured log lines.
// Deployments wire a chat webhook here instead.
type logSink struct {
	logger logger.Logger
}

func newLogSink() *logSink {
	return &logSink{logger: logger.Named("announce")}
}

func (s *logSink) Deliver(ctx context.Context, a model.Announcement) error {
	fields := []logger.Field{
		logger.String("channel", a.Channel),
		logger.String("duel_id", a.DuelID),
		logger.String("kind", string(a.Kind)),
		logger.Int("resolutions", len(a.Resolutions)),
	}
	if a.Verdict != nil {
		fields = append(fields, logger.String("winner", a.Verdict.Winner))
	}
	s.logger.Info(ctx, "duel announcement", fields...)
	return nil
}
