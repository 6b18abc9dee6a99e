// Package definition provides the default Logger implementation used
// when a caller doesn't supply its own.
package definition

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"

	"github.com/molnplus/tmpi/pkg/tmpi/types"
)

var (
	warnColor  = color.New(color.FgYellow).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
	fatalColor = color.New(color.FgRed, color.Bold).SprintFunc()
	debugColor = color.New(color.FgCyan).SprintFunc()
)

// NewDefaultLogger builds the logger used if the caller does not provide
// its own. It writes to stderr, colorized when the stream is a terminal,
// and keeps debug output off by default.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(colorable.NewColorableStderr())
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	return &DefaultLogger{entry: l, debug: false}
}

// DefaultLogger implements types.Logger on top of logrus, coloring the
// level tag the same way the teacher's bare log.Logger prefixed it with
// "[INFO]"/"[WARN]"/etc.
type DefaultLogger struct {
	entry *logrus.Logger
	debug bool
}

func (l *DefaultLogger) Info(v ...interface{}) {
	l.entry.Info(v...)
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *DefaultLogger) Warn(v ...interface{}) {
	l.entry.Warn(warnColor(fmt.Sprint(v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.entry.Warn(warnColor(fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Error(v ...interface{}) {
	l.entry.Error(errorColor(fmt.Sprint(v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.entry.Error(errorColor(fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(debugColor(fmt.Sprint(v...)))
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debug(debugColor(fmt.Sprintf(format, v...)))
	}
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}

func (l *DefaultLogger) Fatal(v ...interface{}) {
	l.entry.Error(fatalColor(fmt.Sprint(v...)))
	os.Exit(1)
}

func (l *DefaultLogger) Fatalf(format string, v ...interface{}) {
	l.entry.Error(fatalColor(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func (l *DefaultLogger) Panic(v ...interface{}) {
	l.entry.Panic(v...)
}

func (l *DefaultLogger) Panicf(format string, v ...interface{}) {
	l.entry.Panicf(format, v...)
}

var _ types.Logger = (*DefaultLogger)(nil)
