package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

// RootKey is the key of a scalar document in a flattened map.
const RootKey = "."

// DiffMap is a flat map from dotted path (a.b[0].c) to value.
type DiffMap[T any] map[string]T

// Flatten turns a decoded JSON or YAML document into a DiffMap. Empty maps and
// slices are kept as leaves so that their removal shows up in a diff.
func Flatten(v any) DiffMap[any] {
	out := DiffMap[any]{}
	flatten(out, "", v)
	return out
}

func flatten(out DiffMap[any], prefix string, v any) {
	switch value := v.(type) {
	case map[string]any:
		if len(value) == 0 {
			out[keyOr(prefix)] = value
			return
		}
		for k, child := range value {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(out, key, child)
		}
	case []any:
		if len(value) == 0 {
			out[keyOr(prefix)] = value
			return
		}
		for i, child := range value {
			flatten(out, fmt.Sprintf("%s[%d]", prefix, i), child)
		}
	default:
		out[keyOr(prefix)] = value
	}
}

func keyOr(prefix string) string {
	if prefix == "" {
		return RootKey
	}
	return prefix
}

// Keys returns the paths in sorted order.
func (d DiffMap[T]) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func FindCommonPrefix(a, b string) string {
	minLen := min(len(a), len(b))

	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}

	return a[:minLen]
}

func FindCommonSuffix(a, b string) string {
	lenA, lenB := len(a), len(b)
	minLen := min(lenA, lenB)

	for i := 0; i < minLen; i++ {
		if a[lenA-1-i] != b[lenB-1-i] {
			if i == 0 {
				return ""
			}
			return a[lenA-i:]
		}
	}

	return a[lenA-minLen:]
}

// HumanDiff highlights only the changed middle of two strings.
func HumanDiff(oldVal, newVal string) api.Text {
	prefix := FindCommonPrefix(oldVal, newVal)
	suffix := FindCommonSuffix(oldVal, newVal)

	if len(prefix)+len(suffix) > len(oldVal) || len(prefix)+len(suffix) > len(newVal) {
		suffix = ""
	}

	oldDiff := oldVal[len(prefix) : len(oldVal)-len(suffix)]
	newDiff := newVal[len(prefix) : len(newVal)-len(suffix)]

	t := clicky.Text("")

	if prefix != "" {
		t = t.Append(prefix, "text-muted")
	}

	if oldDiff != "" {
		t = t.Append(oldDiff, "text-red-500")
	}

	if suffix != "" && oldDiff != "" {
		t = t.Append(suffix, "text-muted")
	}

	t = t.Append(" → ", "text-muted")

	if newDiff != "" {
		t = t.Append(newDiff, "text-green-500")
	}

	if suffix != "" && newDiff != "" {
		t = t.Append(suffix, "text-muted")
	}

	return t
}

// Diff compares two flat maps: keys only in d are removals, keys only in other are
// additions and differing values are changes.
func (d DiffMap[T]) Diff(other DiffMap[T]) DiffMap[api.Text] {
	changes := make(DiffMap[api.Text])

	allKeys := make(map[string]bool)
	for k := range d {
		allKeys[k] = true
	}
	for k := range other {
		allKeys[k] = true
	}

	for key := range allKeys {
		thisVal, inThis := d[key]
		otherVal, inOther := other[key]

		if inThis && !inOther {
			changes[key] = clicky.Text("-", "text-red-500").Append(thisVal, "strikethrough text-red-500")
		} else if !inThis && inOther {
			changes[key] = clicky.Text("+", "text-green-500").Append(otherVal, "text-green-500")
		} else if fmt.Sprintf("%v", thisVal) != fmt.Sprintf("%v", otherVal) {
			thisStr, thisIsString := any(thisVal).(string)
			otherStr, otherIsString := any(otherVal).(string)

			if thisIsString && otherIsString {
				changes[key] = HumanDiff(thisStr, otherStr)
			} else {
				changes[key] = clicky.Text("").Append(thisVal, "text-red-500").Append(" → ").Append(otherVal, "text-green-500").Append(" (type: " + fmt.Sprintf("%T", otherVal) + ")")
			}
		}
	}

	return changes
}

func smartCollapse(m map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		nestedMap, isMap := value.(map[string]any)
		if !isMap {
			result[key] = value
			continue
		}

		collapsed := smartCollapse(nestedMap)

		if len(collapsed) == 1 {
			for childKey, childValue := range collapsed {
				result[key+"."+childKey] = childValue
			}
		} else {
			result[key] = collapsed
		}
	}

	return result
}

// Collapse rebuilds a nested map from the dotted paths, folding single-child levels
// back into dotted keys.
func (d DiffMap[T]) Collapse() map[string]any {
	result := make(map[string]any)

	for key, value := range d {
		parts := strings.Split(key, ".")
		if key == RootKey {
			parts = []string{key}
		}

		current := result
		for i, part := range parts {
			if i == len(parts)-1 {
				current[part] = value
			} else {
				if _, exists := current[part]; !exists {
					current[part] = make(map[string]any)
				}
				switch current[part].(type) {
				case map[string]any:
					current = current[part].(map[string]any)
				default:
					current[part] = make(map[string]any)
					current = current[part].(map[string]any)
				}
			}
		}
	}

	return smartCollapse(result)
}

func (d DiffMap[T]) Pretty() api.Text {
	collapsed := d.Collapse()
	return RenderMapAsYAML(collapsed, 0)
}

func RenderMapAsYAML(m map[string]any, indent int) api.Text {
	t := clicky.Text("")
	if len(m) == 0 {
		return t
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var indentT api.Text
	for i := 0; i < indent; i++ {
		indentT = indentT.Tab()
	}

	for _, key := range keys {
		value := m[key]

		switch v := value.(type) {
		case map[string]any:
			t = t.Append(indentT).Append(key).Append(": ", "text-muted").NewLine()
			t = t.Append(RenderMapAsYAML(v, indent+1))
		default:
			t = t.Append(indentT).Append(key).Append(": ", "text-muted").Append(v, "max-w-[100ch]").NewLine()
		}
	}

	return t
}
