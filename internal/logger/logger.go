package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a production zap sugared logger writing to stdout. The
// returned sync func is meant to be deferred from main.
func New() (*zap.SugaredLogger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}

	l, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("can't init logger: %w", err)
	}

	sugar := l.Sugar()
	syncFunc := func() {
		// Sync on stdout fails on some platforms; nothing to do about it.
		_ = sugar.Sync()
	}
	return sugar, syncFunc, nil
}
