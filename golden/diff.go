package golden

import (
	"fmt"
	"strings"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/fixturegate/pipeline"
	"github.com/flanksource/fixturegate/utils"
	"github.com/samber/lo"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Line is one line of a diff: Op is "-", "+" or " ".
type Line struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// Diff is the difference between a golden file and the actual output. An empty
// diff means they match.
type Diff struct {
	Format string `json:"format"`
	Lines  []Line `json:"lines,omitempty"`
	// Changes are set for structured formats, keyed by flattened path
	Changes map[string]string `json:"changes,omitempty"`
}

func (d Diff) Empty() bool {
	return len(d.Changes) == 0 && !lo.SomeBy(d.Lines, func(l Line) bool { return l.Op != " " })
}

// Compare decodes both documents in format and diffs them. Structured formats are
// compared key by key, everything else line by line on the canonical text.
func Compare(format string, expected, actual []byte) (Diff, error) {
	want, err := pipeline.Decode(format, expected)
	if err != nil {
		return Diff{}, fmt.Errorf("invalid golden file: %w", err)
	}
	got, err := pipeline.Decode(format, actual)
	if err != nil {
		return Diff{}, err
	}
	return CompareDocuments(want, got), nil
}

// CompareDocuments diffs two decoded documents of the same format.
func CompareDocuments(want, got pipeline.Document) Diff {
	d := Diff{Format: want.Format}
	if want.Text == got.Text {
		return d
	}
	if want.Structured() {
		d.Changes = structural(want.Value, got.Value)
	}
	d.Lines = lineDiff(want.Text, got.Text)
	return d
}

func structural(want, got any) map[string]string {
	changes := map[string]string{}
	for key, text := range utils.Flatten(want).Diff(utils.Flatten(got)) {
		changes[key] = text.String()
	}
	return changes
}

const contextLines = 3

func lineDiff(want, got string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for i, diff := range diffs {
		text := strings.TrimSuffix(diff.Text, "\n")
		split := strings.Split(text, "\n")
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range split {
				out = append(out, Line{Op: "-", Text: line})
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range split {
				out = append(out, Line{Op: "+", Text: line})
			}
		case diffmatchpatch.DiffEqual:
			// keep up to contextLines around changes
			var keep []string
			switch {
			case i == 0 && len(diffs) > 1:
				keep = split[max(0, len(split)-contextLines):]
			case i == len(diffs)-1:
				keep = split[:min(len(split), contextLines)]
			case len(split) > 2*contextLines:
				keep = append(append([]string{}, split[:contextLines]...), split[len(split)-contextLines:]...)
			default:
				keep = split
			}
			for _, line := range keep {
				out = append(out, Line{Op: " ", Text: line})
			}
		}
	}
	return out
}

// String renders the diff in unified style without headers.
func (d Diff) String() string {
	var b strings.Builder
	for _, l := range d.Lines {
		b.WriteString(l.Op)
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func (d Diff) Pretty() api.Text {
	t := clicky.Text("")
	if len(d.Changes) > 0 {
		return utils.DiffMap[string](d.Changes).Pretty()
	}
	for _, l := range d.Lines {
		switch l.Op {
		case "-":
			t = t.Append("-", "text-red-700").Append(l.Text, "text-red-500").NewLine()
		case "+":
			t = t.Append("+", "text-green-700").Append(l.Text, "text-green-500").NewLine()
		default:
			t = t.Append(" "+l.Text, "text-gray-300").NewLine()
		}
	}
	return t
}
