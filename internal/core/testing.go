package core

import (
	"strings"
	"sync"
)

// LogBuffer collects log output written from many goroutines. Tests hand it
// to a slog handler and inspect the lines afterwards.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	tail  string
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := strings.Split(b.tail+string(p), "\n")
	b.tail = parts[len(parts)-1]
	b.lines = append(b.lines, parts[:len(parts)-1]...)
	return len(p), nil
}

// Lines returns the complete lines written so far.
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// Count returns how many complete lines contain substr.
func (b *LogBuffer) Count(substr string) int {
	n := 0
	for _, l := range b.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}
