// Package logging provides the application-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = newLogger(os.Stderr)
	mu     sync.RWMutex
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Options configure the logger.
type Options struct {
	Level string // logrus level name, info when empty or invalid
	File  string // rotating log file, stderr only when empty
}

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&formatter.Formatter{
		NoColors:        true,
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})
	l.SetReportCaller(true)
	l.SetOutput(out)
	return l
}

// Setup replaces the logger according to opts.
func Setup(opts Options) {
	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l := newLogger(io.MultiWriter(writers...))
	if level, err := logrus.ParseLevel(opts.Level); err == nil {
		l.SetLevel(level)
	}

	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetOutput redirects the logger, used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// Logger returns the current logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(fields Fields, msg string) {
	Logger().WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	Logger().WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	Logger().WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	Logger().WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs msg at error level with a trace ID and returns the ID,
// so it can be shown to the client. The request ID is reused when present.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}
	traceID, _ := fields["request_id"].(string)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	fields["trace_id"] = traceID
	Logger().WithFields(fields).Error(msg)
	return traceID
}
