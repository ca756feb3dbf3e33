package core

// Logger is any leveled logger the app can report through.
// Anything passed in args that the implementation recognizes (eg. an error,
// a logged-in user) may be used to enrich the report.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
