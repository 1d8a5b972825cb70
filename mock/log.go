package mock

import (
	"fmt"
	"strings"
	"sync"
)

// RecordingLogger keeps every Printf line. Debugf output is dropped.
type RecordingLogger struct {
	mu    sync.Mutex
	Lines []string
}

// Printf implements lake.Logger.
func (l *RecordingLogger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf(format, v...))
}

// Debugf implements lake.Logger.
func (l *RecordingLogger) Debugf(format string, v ...interface{}) {}

// Contains reports whether any logged line contains s.
func (l *RecordingLogger) Contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.Lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
