package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a structured error or warning with optional consequence,
// suggestions and follow-up commands
//
//	❌ MIGRATION FAILED: rename collection missing: record not found
//
//	   1 migration(s) were rolled back before the failure.
//
//	   → Check migration status: mapper migrate status
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Consequence string
	Suggestions []string
	Commands    []string
	NoColor     bool
}

// String renders the message
func (m Message) String() string {
	var b strings.Builder

	head, body, symbol := m.palette()

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Consequence != "" {
		b.WriteString("\n")
		body.Fprintf(&b, "   %s\n", m.Consequence)
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		m.paint(color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.Commands) > 0 {
		b.WriteString("\n")
		cyan := m.paint(color.FgCyan)
		for _, cmd := range m.Commands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

func (m Message) palette() (*color.Color, *color.Color, string) {
	switch m.Level {
	case LevelWarning:
		return m.paint(color.FgYellow, color.Bold), m.paint(color.FgYellow), "⚠️"
	case LevelInfo:
		return m.paint(color.FgCyan, color.Bold), m.paint(color.FgCyan), "ℹ️"
	}
	return m.paint(color.FgRed, color.Bold), m.paint(color.FgRed), "❌"
}

func (m Message) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if m.NoColor {
		c.DisableColor()
	}
	return c
}

// Write writes the rendered message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.String())
}

// MigrationError describes a failed migration run
func MigrationError(problem, consequence string, suggestions []string, noColor bool) Message {
	return Message{
		Level:       LevelError,
		Context:     "migration failed",
		Problem:     problem,
		Consequence: consequence,
		Suggestions: suggestions,
		Commands: []string{
			"Check migration status: mapper migrate status",
			"Get help: mapper migrate --help",
		},
		NoColor: noColor,
	}
}

// ConfigError describes an invalid configuration
func ConfigError(problem string, noColor bool) Message {
	return Message{
		Level:   LevelError,
		Context: "configuration error",
		Problem: problem,
		Commands: []string{
			"Edit mapper.yml or set MAPPER_* environment variables",
		},
		NoColor: noColor,
	}
}

// Success writes a green check line
func Success(w io.Writer, message string, noColor bool) {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ %s\n", message)
}

// Info writes a cyan line
func Info(w io.Writer, message string, noColor bool) {
	cyan := color.New(color.FgCyan)
	if noColor {
		cyan.DisableColor()
	}
	cyan.Fprintln(w, message)
}
