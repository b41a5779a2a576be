// Package logger builds the zap logger shared by the commands.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing debug and info entries to stdout and
// warnings and errors to stderr.  Debug entries are only written when debug
// is set
func New(debug bool) *zap.Logger {

	// debug and info level enabler
	debugInfoLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level == zapcore.DebugLevel || level == zapcore.InfoLevel
	})

	// info level enabler
	infoLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level == zapcore.InfoLevel
	})

	// warn, error and fatal level enabler
	warnErrorFatalLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level >= zapcore.WarnLevel
	})

	stdoutSyncer := zapcore.Lock(os.Stdout)
	stderrSyncer := zapcore.Lock(os.Stderr)

	encCfg := zap.NewProductionEncoderConfig()
	outLevel := zapcore.LevelEnabler(infoLevel)

	if debug {
		encCfg = zap.NewDevelopmentEncoderConfig()
		outLevel = debugInfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), stdoutSyncer, outLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), stderrSyncer, warnErrorFatalLevel),
	)

	return zap.New(core)
}
