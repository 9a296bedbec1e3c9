package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildLogger constructs the root logger: development-style colorized
// encoding with debug enabled when cfg.Debug is set, otherwise a quieter
// production encoder.
func BuildLogger(debug bool) *zap.Logger {
	if debug {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.TimeKey = ""
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logConfig.DisableStacktrace = true
		logConfig.DisableCaller = true
		logConfig.Level.SetLevel(zap.DebugLevel)
		return zap.Must(logConfig.Build())
	}
	logConfig := zap.NewProductionConfig()
	logConfig.DisableStacktrace = true
	return zap.Must(logConfig.Build())
}
