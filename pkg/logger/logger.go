// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Sugared = *zap.SugaredLogger

// New returns the process logger. Prod emits JSON at info without
// stacktraces on warnings; everything else gets the development console
// encoder. Authorizer verdict details log at debug only.
func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
		z, _ = cfg.Build()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar()
}
