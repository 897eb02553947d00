package extract

import "log"

// StdLogger adapts the standard library's log package to the Logger
// collaborator interface.
type StdLogger struct{}

// Write implements Logger.
func (StdLogger) Write(message string) {
	log.Print(message)
}
