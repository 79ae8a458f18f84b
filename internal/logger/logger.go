// Package logger builds the application-wide zap logger.
package logger

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a zap logger configured for the given environment.  "prod"
// and "production" select the JSON production config; everything else gets
// the colored development config.  Output always goes to stdout.
func New(env string) *zap.Logger {
    var cfg zap.Config
    switch env {
    case "prod", "production":
        cfg = zap.NewProductionConfig()
    default:
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    cfg.OutputPaths = []string{"stdout"}

    l, err := cfg.Build()
    if err != nil {
        panic("failed to create logger: " + err.Error())
    }
    return l
}
