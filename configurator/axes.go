package configurator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// FrontendKind selects the compiler frontend used for analysis.
type FrontendKind string

const (
	Fir  FrontendKind = "Fir"
	Fe10 FrontendKind = "Fe10"
)

// ModuleKind describes what kind of module the fixture is analysed as.
type ModuleKind string

const (
	Source              ModuleKind = "Source"
	LibraryBinary       ModuleKind = "LibraryBinary"
	LibrarySource       ModuleKind = "LibrarySource"
	ScriptSource        ModuleKind = "ScriptSource"
	CodeFragment        ModuleKind = "CodeFragment"
	NotUnderContentRoot ModuleKind = "NotUnderContentRoot"
)

// SessionMode controls whether analysis runs in a normal or dependent session.
type SessionMode string

const (
	Normal    SessionMode = "Normal"
	Dependent SessionMode = "Dependent"
)

// APIMode selects the IDE or the standalone analysis API.
type APIMode string

const (
	Ide        APIMode = "Ide"
	Standalone APIMode = "Standalone"
)

// Axis is a finite enumerated domain.
type Axis struct {
	Name   string
	Values []string
}

func (a Axis) Contains(value string) bool {
	return lo.Contains(a.Values, value)
}

func (a Axis) parse(value string) (string, error) {
	for _, v := range a.Values {
		if strings.EqualFold(v, value) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q, expected one of %s", a.Name, value, strings.Join(a.Values, ", "))
}

var (
	FrontendAxis = Axis{Name: "frontend", Values: []string{string(Fir), string(Fe10)}}
	ModuleAxis   = Axis{Name: "module", Values: []string{
		string(Source), string(LibraryBinary), string(LibrarySource),
		string(ScriptSource), string(CodeFragment), string(NotUnderContentRoot),
	}}
	SessionAxis = Axis{Name: "session", Values: []string{string(Normal), string(Dependent)}}
	APIAxis     = Axis{Name: "api", Values: []string{string(Ide), string(Standalone)}}
)

// Axes lists every axis of a Tuple, in Tuple field order.
var Axes = []Axis{FrontendAxis, ModuleAxis, SessionAxis, APIAxis}

// Tuple is one value per axis. It is comparable and used as a map key.
type Tuple struct {
	Frontend FrontendKind `json:"frontend" yaml:"frontend"`
	Module   ModuleKind   `json:"module" yaml:"module"`
	Session  SessionMode  `json:"session" yaml:"session"`
	API      APIMode      `json:"api" yaml:"api"`
}

// ParseTuple builds a tuple from axis name to value, e.g.
// {"frontend": "Fir", "module": "Source", "session": "Normal", "api": "Standalone"}.
// Every axis must be present and hold a value from its domain.
func ParseTuple(values map[string]string) (Tuple, error) {
	var errs []string
	parsed := map[string]string{}
	for _, axis := range Axes {
		raw, ok := values[axis.Name]
		if !ok || raw == "" {
			errs = append(errs, fmt.Sprintf("missing %s", axis.Name))
			continue
		}
		v, err := axis.parse(raw)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		parsed[axis.Name] = v
	}
	known := lo.Map(Axes, func(a Axis, _ int) string { return a.Name })
	for _, key := range lo.Keys(values) {
		if !lo.Contains(known, key) {
			errs = append(errs, fmt.Sprintf("unknown axis %q", key))
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return Tuple{}, fmt.Errorf("invalid configuration tuple: %s", strings.Join(errs, "; "))
	}
	return Tuple{
		Frontend: FrontendKind(parsed[FrontendAxis.Name]),
		Module:   ModuleKind(parsed[ModuleAxis.Name]),
		Session:  SessionMode(parsed[SessionAxis.Name]),
		API:      APIMode(parsed[APIAxis.Name]),
	}, nil
}

// Validate checks every axis value against its domain. Unlike ParseTuple the
// comparison is exact, since tuples are map keys.
func (t Tuple) Validate() error {
	var errs []string
	values := t.AsMap()
	for _, axis := range Axes {
		if !axis.Contains(values[axis.Name]) {
			errs = append(errs, fmt.Sprintf("invalid %s %q", axis.Name, values[axis.Name]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration tuple: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AsMap returns axis name to value.
func (t Tuple) AsMap() map[string]string {
	return map[string]string{
		FrontendAxis.Name: string(t.Frontend),
		ModuleAxis.Name:   string(t.Module),
		SessionAxis.Name:  string(t.Session),
		APIAxis.Name:      string(t.API),
	}
}

// String renders the tuple as Frontend/Module/Session/API.
func (t Tuple) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", t.Frontend, t.Module, t.Session, t.API)
}
