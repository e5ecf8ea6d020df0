package instant

import "go.uber.org/zap"

// Reporter receives genuinely unexpected errors, fire-and-forget. Expected
// failures (quote errors, rejected signatures, reverts) never reach it.
type Reporter interface {
	Report(err error)
}

// ZapReporter logs reported errors.
type ZapReporter struct {
	logger *zap.Logger
}

func NewZapReporter(logger *zap.Logger) *ZapReporter {
	return &ZapReporter{logger: logger.With(zap.String("module", "reporter"))}
}

func (r *ZapReporter) Report(err error) {
	r.logger.Error("unexpected error", zap.Error(err))
}
