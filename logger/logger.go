// Package logger provides the logrus formatter used by all decaystats binaries,
// plus a helper to install it.
package logger

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TimestampFormat is the default timestamp layout: millisecond precision, no zone.
const TimestampFormat = "2006-01-02 15:04:05.000"

// TextFormatter renders entries as
//
//	2006-01-02 15:04:05.000 [LEVEL] [module] message key=value ...
//
// with fields sorted by key.
type TextFormatter struct {
	// Disable timestamp logging. useful when output is redirected to logging
	// system that already adds timestamps
	DisableTimestamp bool

	// Timestamp layout, see https://golang.org/pkg/time/. Defaults to TimestampFormat
	TimestampFormat string

	// The name of the module (api, stats, ds-tool...), printed before the message
	// when not empty
	ModuleName string

	// Wrap empty field values in quotes
	QuoteEmptyFields bool
}

// Format renders a single log entry.
// It is meant to be called from github.com/sirupsen/logrus.
func (f *TextFormatter) Format(entry *log.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = TimestampFormat
		}
		b.WriteString(entry.Time.Format(layout))
		b.WriteByte(' ')
	}

	fmt.Fprintf(b, "[%s] ", strings.ToUpper(entry.Level.String()))
	if f.ModuleName != "" {
		fmt.Fprintf(b, "[%s] ", f.ModuleName)
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(entry.Message)
	for i, k := range keys {
		if entry.Message != "" || i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		f.appendValue(b, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *TextFormatter) appendValue(b *bytes.Buffer, value interface{}) {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	default:
		fmt.Fprint(b, v)
		return
	}
	if f.needsQuoting(text) {
		fmt.Fprintf(b, "%q", text)
		return
	}
	b.WriteString(text)
}

func (f *TextFormatter) needsQuoting(text string) bool {
	if len(text) == 0 {
		return f.QuoteEmptyFields
	}
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == '/' || ch == ':') {
			return true
		}
	}
	return false
}

// Setup installs a TextFormatter for module on the standard logger and sets
// its level from a level name such as "info" or "debug".
func Setup(module, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&TextFormatter{
		TimestampFormat: TimestampFormat,
		ModuleName:      module,
	})
	log.SetLevel(lvl)
	return nil
}
