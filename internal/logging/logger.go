package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

// NewLogger builds a production zap logger at the given level. Sync logs
// go to stderr so stdout stays clean for the human-oriented output.
func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// Nop returns a logger that discards everything. Used by tests and by
// commands that have no logging surface.
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

// ForBranch returns a logger carrying the standard per-branch fields.
func (l *Logger) ForBranch(repoID, branch string) *zap.Logger {
	return l.With(
		zap.String("repo_id", repoID),
		zap.String("branch", branch),
	)
}
