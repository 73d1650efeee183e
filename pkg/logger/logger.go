package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log stays usable before Init so library code and tests never hit a nil logger.
var log = zap.NewNop().Sugar()

func Init() {
	InitWithLevel(os.Getenv("LOG_LEVEL"))
}

func InitWithLevel(logLevel string) {
	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      os.Getenv("APP_ENV") == "development",
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to example logger instead of panicking
		fallbackLogger := zap.NewExample()
		log = fallbackLogger.Sugar()
		log.Warn("Failed to initialize custom logger, using fallback", "error", err)
		return
	}

	log = logger.Sugar()
}

// Use replaces the package logger, mainly for tests that capture output.
func Use(l *zap.Logger) {
	log = l.Sugar()
}

// Field keys shared by every component, so one profile's or one event's
// lines can be pulled out of the stream.
const (
	KeyUserID  = "user_id"
	KeyEventID = "event_id"
	KeyError   = "error"
)

// Scoped is a logger bound to one profile and, once WithEvent is called, to
// the event being applied to it.
type Scoped struct {
	s *zap.SugaredLogger
}

// ForUser binds user_id to every entry.
func ForUser(userID string) Scoped {
	return Scoped{s: log.With(KeyUserID, userID)}
}

// WithEvent adds event_id, which ties together every row one event writes.
func (l Scoped) WithEvent(eventID string) Scoped {
	return Scoped{s: l.s.With(KeyEventID, eventID)}
}

func (l Scoped) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l Scoped) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l Scoped) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l Scoped) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func Debug(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	log.Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	log.Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, keysAndValues...)
}

func Fatal(msg string, err error) {
	log.Fatalw(msg, KeyError, err)
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
