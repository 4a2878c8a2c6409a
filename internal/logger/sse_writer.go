package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

const defaultTimeFormat = time.Kitchen

// SSEPublisher is the subset of sse.Server used by the writer.
type SSEPublisher interface {
	Publish(topic string, event *sse.Event)
}

// Formatter transforms one decoded log field into a display string.
type Formatter func(interface{}) string

// LogMessage is the event payload published to the "logs" stream.
type LogMessage struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Bytes marshals the message for the event data field.
func (l *LogMessage) Bytes() ([]byte, error) {
	return json.Marshal(l)
}

// SSEWriter formats zerolog JSON lines the way the console writer does and
// publishes them to the SSE log stream.
type SSEWriter struct {
	SSE             SSEPublisher
	TimeFormat      string
	PartsOrder      []string
	FormatTimestamp Formatter
	FormatLevel     Formatter
	FormatCaller    Formatter
	FormatMessage   Formatter
}

func defaultPartsOrder() []string {
	return []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.CallerFieldName,
		zerolog.MessageFieldName,
	}
}

// NewSSEWriter returns a writer publishing to the given SSE server.
func NewSSEWriter(srv SSEPublisher, options ...func(w *SSEWriter)) SSEWriter {
	w := SSEWriter{
		SSE:        srv,
		TimeFormat: defaultTimeFormat,
		PartsOrder: defaultPartsOrder(),
	}

	for _, opt := range options {
		opt(&w)
	}

	return w
}

func (w SSEWriter) Write(p []byte) (n int, err error) {
	if w.SSE == nil {
		return 0, nil
	}

	var evt map[string]interface{}
	d := json.NewDecoder(strings.NewReader(string(p)))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		return 0, fmt.Errorf("cannot decode log event: %w", err)
	}

	formatTimestamp := w.FormatTimestamp
	if formatTimestamp == nil {
		formatTimestamp = defaultFormatTimestamp(w.TimeFormat)
	}
	formatLevel := w.FormatLevel
	if formatLevel == nil {
		formatLevel = defaultFormatLevel()
	}
	formatCaller := w.FormatCaller
	if formatCaller == nil {
		formatCaller = defaultFormatCaller()
	}
	formatMessage := w.FormatMessage
	if formatMessage == nil {
		formatMessage = defaultFormatMessage
	}

	var parts []string
	if caller, ok := evt[zerolog.CallerFieldName]; ok {
		parts = append(parts, formatCaller(caller))
	}
	if msg, ok := evt[zerolog.MessageFieldName]; ok {
		parts = append(parts, formatMessage(msg))
	}

	// Remaining fields, sorted for stable output.
	var fields []string
	for field := range evt {
		switch field {
		case zerolog.TimestampFieldName, zerolog.LevelFieldName,
			zerolog.CallerFieldName, zerolog.MessageFieldName:
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s=%s", field, formatFieldValue(evt[field])))
	}

	lm := LogMessage{
		Time:    formatTimestamp(evt[zerolog.TimestampFieldName]),
		Level:   formatLevel(evt[zerolog.LevelFieldName]),
		Message: strings.Join(parts, " "),
	}

	data, err := lm.Bytes()
	if err != nil {
		return 0, err
	}

	w.SSE.Publish("logs", &sse.Event{Data: data})

	return len(p), nil
}

// needsQuote reports whether a field value must be quoted for display.
func needsQuote(s string) bool {
	for i := range s {
		if s[i] < 0x20 || s[i] > 0x7e || s[i] == ' ' || s[i] == '\\' || s[i] == '"' {
			return true
		}
	}
	return false
}

func formatFieldValue(i interface{}) string {
	switch v := i.(type) {
	case string:
		if needsQuote(v) {
			return fmt.Sprintf("%q", v)
		}
		return v
	case json.Number:
		return v.String()
	case error:
		return v.Error()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("[error: %v]", err)
		}
		return string(b)
	}
}

func defaultFormatTimestamp(timeFormat string) Formatter {
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	return func(i interface{}) string {
		switch v := i.(type) {
		case string:
			ts, err := time.ParseInLocation(zerolog.TimeFieldFormat, v, time.Local)
			if err != nil {
				return v
			}
			return ts.Local().Format(timeFormat)
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return v.String()
			}
			return time.Unix(n, 0).Local().Format(timeFormat)
		default:
			return "<nil>"
		}
	}
}

func defaultFormatLevel() Formatter {
	return func(i interface{}) string {
		if i == nil {
			return "???"
		}
		l, ok := i.(string)
		if !ok {
			return "???"
		}
		switch l {
		case zerolog.LevelTraceValue:
			return "TRC"
		case zerolog.LevelDebugValue:
			return "DBG"
		case zerolog.LevelInfoValue:
			return "INF"
		case zerolog.LevelWarnValue:
			return "WRN"
		case zerolog.LevelErrorValue:
			return "ERR"
		case zerolog.LevelFatalValue:
			return "FTL"
		case zerolog.LevelPanicValue:
			return "PNC"
		default:
			return l
		}
	}
}

func defaultFormatCaller() Formatter {
	return func(i interface{}) string {
		c, ok := i.(string)
		if !ok {
			return ""
		}
		if cwd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(cwd, c); err == nil {
				c = rel
			}
		}
		return c + " >"
	}
}

func defaultFormatMessage(i interface{}) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("%s", i)
}
