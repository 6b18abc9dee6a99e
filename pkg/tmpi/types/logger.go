package types

// Logger is the logging surface every core component depends on. Its
// method set mirrors the teacher's DefaultLogger exactly so a caller can
// swap in any backing implementation (the repository's own
// definition.Logger, or a test double) without touching call sites.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
}
