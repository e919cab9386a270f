package fixtures

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

var directiveRegex = regexp.MustCompile(`^//\s*([A-Z][A-Z0-9_]*)\s*(?::\s*(.*))?$`)

// Directives are the leading "// NAME" or "// NAME: value" comment lines of a fixture,
// e.g. "// IGNORE_FIR" or "// LANGUAGE: +ContextReceivers".
type Directives map[string]string

// ParseDirectives reads directives from the head of a fixture. Parsing stops at the
// first line that is neither blank nor a directive.
func ParseDirectives(content []byte) Directives {
	directives := Directives{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		matches := directiveRegex.FindStringSubmatch(line)
		if matches == nil {
			break
		}
		value := strings.TrimSpace(matches[2])
		if existing, ok := directives[matches[1]]; ok && existing != "" && value != "" {
			value = existing + "," + value
		}
		directives[matches[1]] = value
	}
	return directives
}

func (d Directives) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// AsMap returns the directives as a generic map for expression evaluation.
func (d Directives) AsMap() map[string]any {
	m := make(map[string]any, len(d))
	for k, v := range d {
		m[k] = v
	}
	return m
}
