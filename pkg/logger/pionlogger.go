package logger

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// PionLogger routes the logs of pion WebRTC internals into the app logger.
type PionLogger struct {
	log *Logger
}

func NewPionLogger(root *Logger, level int) *PionLogger {
	l := root.Level(zerolog.Level(level))
	return &PionLogger{log: root.Extend(l.With().Str(ModuleField, "pion"))}
}

func (p PionLogger) NewLogger(scope string) logging.LeveledLogger {
	return PionLogger{log: p.log.Extend(p.log.With().Str("mod", scope))}
}

func (p PionLogger) Trace(msg string) { p.log.WithLevel(zerolog.TraceLevel).Msg(msg) }

func (p PionLogger) Tracef(format string, args ...any) {
	p.log.WithLevel(zerolog.TraceLevel).Msgf(format, args...)
}

func (p PionLogger) Debug(msg string)                  { p.log.Debug().Msg(msg) }
func (p PionLogger) Debugf(format string, args ...any) { p.log.Debug().Msgf(format, args...) }
func (p PionLogger) Info(msg string)                   { p.log.Info().Msg(msg) }
func (p PionLogger) Infof(format string, args ...any)  { p.log.Info().Msgf(format, args...) }
func (p PionLogger) Warn(msg string)                   { p.log.Warn().Msg(msg) }
func (p PionLogger) Warnf(format string, args ...any)  { p.log.Warn().Msgf(format, args...) }
func (p PionLogger) Error(msg string)                  { p.log.Error().Msg(msg) }
func (p PionLogger) Errorf(format string, args ...any) { p.log.Error().Msgf(format, args...) }
