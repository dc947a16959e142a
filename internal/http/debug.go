package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxBodyLogSize = 2048

// DebugLogger dumps request/response pairs for verbose runs. A nil
// *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

func (d *DebugLogger) LogRequest(actor, step string, req *http.Request, body []byte) {
	if d == nil {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n[%s] >>> %s\n", actor, step)
	fmt.Fprintf(&buf, "  %s %s\n", req.Method, req.URL.String())
	writeHeaders(&buf, req.Header)
	if len(body) > 0 {
		fmt.Fprintf(&buf, "  Body: %s\n", truncateBody(body))
	}
	d.write(buf.Bytes())
}

func (d *DebugLogger) LogResponse(actor, step string, resp *http.Response, body []byte, took time.Duration) {
	if d == nil {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] <<< %s (%s)\n", actor, step, took.Round(time.Millisecond))
	fmt.Fprintf(&buf, "  Status: %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	writeHeaders(&buf, resp.Header)
	if len(body) > 0 {
		fmt.Fprintf(&buf, "  Body: %s\n", truncateBody(body))
	}
	d.write(buf.Bytes())
}

func (d *DebugLogger) LogError(actor, step string, err error, took time.Duration) {
	if d == nil {
		return
	}
	d.write([]byte(fmt.Sprintf("[%s] !!! %s (%s)\n  %v\n", actor, step, took.Round(time.Millisecond), err)))
}

func (d *DebugLogger) write(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = d.out.Write(p)
}

// writeHeaders prints headers in a stable order. Bearer tokens are shortened
// so dumps can be shared.
func writeHeaders(buf *bytes.Buffer, h http.Header) {
	if len(h) == 0 {
		return
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	buf.WriteString("  Headers:\n")
	for _, name := range names {
		value := strings.Join(h[name], ", ")
		if name == "Authorization" {
			value = redact(value)
		}
		fmt.Fprintf(buf, "    %s: %s\n", name, value)
	}
}

func redact(v string) string {
	const keep = 16
	if len(v) <= keep {
		return v
	}
	return v[:keep] + "..."
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}
