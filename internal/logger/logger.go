package logger

import (
	"go.uber.org/zap"
)

// NewNamed builds a named zap logger. Development environments get the
// human-readable console encoder; everything else logs JSON at info level.
func NewNamed(appEnv, name string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if appEnv == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	return logger.Named(name), nil
}
