package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/flanksource/fixturegate/configurator"
	"gopkg.in/yaml.v3"
)

// Document is decoded pipeline or golden output. Text is the canonical rendering
// that goldens are written in; Value is set for structured formats.
type Document struct {
	Format      string       `json:"format"`
	Text        string       `json:"text"`
	Value       any          `json:"value,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Structured is true when Value can be compared key by key.
func (d Document) Structured() bool {
	return d.Format == configurator.OutputJSON || d.Format == configurator.OutputYAML
}

// Decode parses raw output in the given format.
func Decode(format string, raw []byte) (Document, error) {
	if format == "" {
		format = configurator.OutputText
	}
	doc := Document{Format: format}
	switch format {
	case configurator.OutputText:
		doc.Text = NormalizeText(string(raw))
	case configurator.OutputJSON:
		if len(bytes.TrimSpace(raw)) == 0 {
			return doc, fmt.Errorf("empty json output")
		}
		if err := json.Unmarshal(raw, &doc.Value); err != nil {
			return doc, fmt.Errorf("invalid json output: %w", err)
		}
		text, err := json.MarshalIndent(doc.Value, "", "  ")
		if err != nil {
			return doc, err
		}
		doc.Text = string(text) + "\n"
	case configurator.OutputYAML:
		if err := yaml.Unmarshal(raw, &doc.Value); err != nil {
			return doc, fmt.Errorf("invalid yaml output: %w", err)
		}
		text, err := yaml.Marshal(doc.Value)
		if err != nil {
			return doc, err
		}
		doc.Text = string(text)
	case configurator.OutputDiagnostics:
		diags, err := ParseDiagnostics(raw)
		if err != nil {
			return doc, err
		}
		doc.Diagnostics = diags
		doc.Text = RenderDiagnostics(diags)
	default:
		return doc, fmt.Errorf("unknown output format %q", format)
	}
	return doc, nil
}

// NormalizeText converts line endings to \n, trims trailing whitespace on every line
// and ends the text with exactly one newline unless it is empty.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	s = strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}

// Diagnostic is one compiler message.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

var diagnosticRegex = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(error|warning|info|note)\s*:\s*(.*)$`)

// ParseDiagnostics reads "file:line:col: severity: message" lines. Blank lines are
// ignored; any other line is an error.
func ParseDiagnostics(raw []byte) ([]Diagnostic, error) {
	var diags []Diagnostic
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := diagnosticRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d is not a diagnostic: %q", n, line)
		}
		lineNo, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, Diagnostic{
			File:     m[1],
			Line:     lineNo,
			Column:   col,
			Severity: m[4],
			Message:  strings.TrimSpace(m[5]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.Message < b.Message
	})
	return diags, nil
}

func RenderDiagnostics(diags []Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}
