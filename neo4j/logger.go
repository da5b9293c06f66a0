package neo4j

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/log"
	"github.com/rs/zerolog"
)

var _ log.BoltLogger = (*LoggerBridge)(nil)

// LoggerBridge routes driver log events to a zerolog.Logger.
//
// The bridge itself implements log.BoltLogger; DriverLogger returns the
// log.Logger view assigned to neo4j.Config.Log. All calls are synchronous.
type LoggerBridge struct {
	logger zerolog.Logger
}

// NewLoggerBridge creates a bridge writing to logger.
func NewLoggerBridge(logger zerolog.Logger) *LoggerBridge {
	return &LoggerBridge{logger: logger}
}

// Logger returns the underlying zerolog.Logger.
func (b *LoggerBridge) Logger() zerolog.Logger {
	return b.logger
}

func (b *LoggerBridge) Trace(msg string, args ...any) {
	b.logger.Trace().Msgf(msg, args...)
}

func (b *LoggerBridge) Debug(msg string, args ...any) {
	b.logger.Debug().Msgf(msg, args...)
}

func (b *LoggerBridge) Info(msg string, args ...any) {
	b.logger.Info().Msgf(msg, args...)
}

func (b *LoggerBridge) Warn(err error, msg string, args ...any) {
	b.logger.Warn().Err(err).Msgf(msg, args...)
}

func (b *LoggerBridge) Error(err error, msg string, args ...any) {
	b.logger.Error().Err(err).Msgf(msg, args...)
}

// IsDebugEnabled reports whether debug events would be written.
func (b *LoggerBridge) IsDebugEnabled() bool {
	return b.enabled(zerolog.DebugLevel)
}

// IsTraceEnabled reports whether trace events would be written.
func (b *LoggerBridge) IsTraceEnabled() bool {
	return b.enabled(zerolog.TraceLevel)
}

// enabled checks both the logger level and the global level, which zerolog
// applies independently.
func (b *LoggerBridge) enabled(level zerolog.Level) bool {
	return b.logger.GetLevel() <= level && zerolog.GlobalLevel() <= level
}

// DriverLogger returns the bridge as the driver's log.Logger.
func (b *LoggerBridge) DriverLogger() log.Logger {
	return driverLogger{b: b}
}

// driverLogger adapts the bridge to the driver's log.Logger, whose methods
// clash by name with the bridge's own.
type driverLogger struct {
	b *LoggerBridge
}

var _ log.Logger = driverLogger{}

func (d driverLogger) Error(name string, id string, err error) {
	d.b.logger.Error().Str("name", name).Str("id", id).Err(err).Msg("driver error")
}

func (d driverLogger) Warnf(name string, id string, msg string, args ...any) {
	d.b.logger.Warn().Str("name", name).Str("id", id).Msgf(msg, args...)
}

func (d driverLogger) Infof(name string, id string, msg string, args ...any) {
	d.b.logger.Info().Str("name", name).Str("id", id).Msgf(msg, args...)
}

func (d driverLogger) Debugf(name string, id string, msg string, args ...any) {
	d.b.logger.Debug().Str("name", name).Str("id", id).Msgf(msg, args...)
}

// LogClientMessage implements log.BoltLogger.
func (b *LoggerBridge) LogClientMessage(context string, msg string, args ...any) {
	b.logger.Trace().Str("bolt", "client").Str("context", context).Msgf(msg, args...)
}

// LogServerMessage implements log.BoltLogger.
func (b *LoggerBridge) LogServerMessage(context string, msg string, args ...any) {
	b.logger.Trace().Str("bolt", "server").Str("context", context).Msgf(msg, args...)
}
