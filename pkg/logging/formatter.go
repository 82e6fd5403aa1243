// Package logging configures logrus for terminals and log collectors.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// priorityFields are printed first, in this order, and highlighted
var priorityFields = []string{
	"time",
	"level",
	"msg",
	"worker",
	"queue",
	"job",
	"bidding_id",
	"lot_id",
	"lot_number",
	"url",
	"error",
}

var fieldRank = func() map[string]int {
	rank := make(map[string]int, len(priorityFields))
	for i, f := range priorityFields {
		rank[f] = i + 1
	}
	return rank
}()

// ColoredJSONFormatter prints the level, message and then key=value pairs
// with values JSON-encoded.
type ColoredJSONFormatter struct {
	TimestampFormat string
	SortingFunc     func([]string) []string
	DisableColors   bool
}

// NewColoredJSONFormatter creates a formatter with RFC3339 timestamps
func NewColoredJSONFormatter() *ColoredJSONFormatter {
	return &ColoredJSONFormatter{
		TimestampFormat: time.RFC3339,
		SortingFunc:     sortFields,
	}
}

// Format implements logrus.Formatter
func (f *ColoredJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "time" || k == "level" || k == "msg" {
			continue
		}
		keys = append(keys, k)
	}
	if f.SortingFunc != nil {
		keys = f.SortingFunc(keys)
	} else {
		sort.Strings(keys)
	}

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	paint := func(c *color.Color, format string, args ...interface{}) string {
		if f.DisableColors {
			return fmt.Sprintf(format, args...)
		}
		return c.Sprintf(format, args...)
	}

	levelColor := levelColor(entry.Level)
	fmt.Fprintf(b, "%s ", paint(color.New(color.FgYellow), "%s", entry.Time.Format(f.TimestampFormat)))
	fmt.Fprintf(b, "%s ", paint(levelColor, "%-7s", strings.ToUpper(entry.Level.String())))
	b.WriteString(paint(levelColor, "%s", entry.Message))

	for _, k := range keys {
		keyColor := color.New(color.FgCyan)
		if _, ok := fieldRank[k]; ok {
			keyColor = color.New(color.FgGreen)
		}
		b.WriteByte(' ')
		b.WriteString(paint(keyColor, "%s=", k))
		b.WriteString(paint(color.New(color.FgWhite), "%s", formatValue(entry.Data[k])))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return fmt.Sprintf("%q", v.Error())
	case fmt.Stringer:
		return fmt.Sprintf("%q", v.String())
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return color.New(color.FgBlue)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.ErrorLevel:
		return color.New(color.FgRed)
	case logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func sortFields(keys []string) []string {
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := fieldRank[keys[i]], fieldRank[keys[j]]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != 0:
			return true
		case rj != 0:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}
