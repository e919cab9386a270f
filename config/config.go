package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/ghodss/yaml"
)

// FileName is looked up in the home directory, the project root and the working
// directory, later files overriding earlier ones.
const FileName = ".fixturegate.yaml"

const DefaultTimeout = 60 * time.Second

// Category is one fixture tree with its own include pattern and generated registry.
type Category struct {
	Name    string `json:"name"`
	Root    string `json:"root"`
	Include string `json:"include"`
	Exclude string `json:"exclude,omitempty"`
	// SkipDirs are doublestar globs matched against directories relative to Root
	SkipDirs       []string `json:"skipDirs,omitempty"`
	FollowSymlinks bool     `json:"followSymlinks,omitempty"`
	// Registry is the manifest written by the test generator
	Registry string `json:"registry"`
	// Tuple selects the analysis configuration for every fixture of the category
	Tuple map[string]string `json:"tuple,omitempty"`
	// Suppressions are fixture identifiers exempt from the missing check
	Suppressions  []string `json:"suppressions,omitempty"`
	Timeout       string   `json:"timeout,omitempty"`
	AllowOrphaned bool     `json:"allowOrphaned,omitempty"`

	// BaseDir is the directory of the file that declared the category; relative
	// paths are resolved against it
	BaseDir string `json:"-"`
}

// Configuration declares the pipeline for one axis tuple.
type Configuration struct {
	Tuple    map[string]string `json:"tuple"`
	Pipeline string            `json:"pipeline"`
	Command  string            `json:"command,omitempty"`
	Args     []string          `json:"args,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Output   string            `json:"output,omitempty"`
	Golden   []string          `json:"golden,omitempty"`
	SkipIf   string            `json:"skipIf,omitempty"`
	Timeout  string            `json:"timeout,omitempty"`
	// ExitCodes accepted from the analyzer, 0 and 1 when empty
	ExitCodes []int `json:"exitCodes,omitempty"`
}

// Key identifies the tuple of a configuration for layering between files. Axis values
// are matched case-insensitively, as when the tuple is parsed.
func (c Configuration) Key() string {
	keys := make([]string, 0, len(c.Tuple))
	for k, v := range c.Tuple {
		keys = append(keys, k+"="+strings.ToLower(strings.TrimSpace(v)))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

type Config struct {
	Categories     []Category      `json:"categories,omitempty"`
	Configurations []Configuration `json:"configurations,omitempty"`
	// ProjectRoot is where the configuration was resolved from
	ProjectRoot string `json:"-"`
}

// Load merges ~/.fixturegate.yaml, <project root>/.fixturegate.yaml and
// <cwd>/.fixturegate.yaml.
func Load(cwd string) (Config, error) {
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve %s: %w", cwd, err)
	}
	cfg := Config{ProjectRoot: FindProjectRoot(absCwd)}

	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, FileName))
	}
	files = append(files, filepath.Join(cfg.ProjectRoot, FileName))
	if absCwd != cfg.ProjectRoot {
		files = append(files, filepath.Join(absCwd, FileName))
	}

	for _, file := range files {
		override, err := LoadFile(file)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Config{}, err
		}
		logger.V(3).Infof("loaded %s", file)
		cfg = Merge(cfg, override)
	}
	return cfg, nil
}

// LoadFile reads a single configuration file. Relative paths in categories are
// resolved against the file's directory.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	for i := range cfg.Categories {
		cfg.Categories[i].BaseDir = base
	}
	cfg.ProjectRoot = base
	return cfg, cfg.Validate()
}

// Merge layers override on top of base: categories by name, configurations by tuple.
func Merge(base, override Config) Config {
	out := Config{ProjectRoot: base.ProjectRoot}
	if out.ProjectRoot == "" {
		out.ProjectRoot = override.ProjectRoot
	}

	byName := map[string]int{}
	for _, c := range base.Categories {
		byName[c.Name] = len(out.Categories)
		out.Categories = append(out.Categories, c)
	}
	for _, c := range override.Categories {
		if i, ok := byName[c.Name]; ok {
			out.Categories[i] = c
			continue
		}
		byName[c.Name] = len(out.Categories)
		out.Categories = append(out.Categories, c)
	}

	overridden := map[string]bool{}
	for _, c := range override.Configurations {
		overridden[c.Key()] = true
	}
	for _, c := range base.Configurations {
		if !overridden[c.Key()] {
			out.Configurations = append(out.Configurations, c)
		}
	}
	out.Configurations = append(out.Configurations, override.Configurations...)
	return out
}

// Validate checks patterns and durations up front so a run never starts with a
// configuration it cannot honour.
func (c Config) Validate() error {
	var errs []string
	seen := map[string]bool{}
	for _, cat := range c.Categories {
		if cat.Name == "" {
			errs = append(errs, "category without name")
		}
		if seen[cat.Name] {
			errs = append(errs, fmt.Sprintf("category %s declared twice", cat.Name))
		}
		seen[cat.Name] = true
		if cat.Root == "" {
			errs = append(errs, fmt.Sprintf("category %s: root is required", cat.Name))
		}
		if cat.Include == "" {
			errs = append(errs, fmt.Sprintf("category %s: include is required", cat.Name))
		}
		if _, err := cat.ScanPatterns(); err != nil {
			errs = append(errs, fmt.Sprintf("category %s: %v", cat.Name, err))
		}
		if _, err := parseDuration(cat.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("category %s: %v", cat.Name, err))
		}
	}
	for _, conf := range c.Configurations {
		if conf.Pipeline == "" {
			errs = append(errs, fmt.Sprintf("configuration %s: pipeline is required", conf.Key()))
		}
		if _, err := parseDuration(conf.Timeout); err != nil {
			errs = append(errs, fmt.Sprintf("configuration %s: %v", conf.Key(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Category returns the category with the given name.
func (c Config) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// Select returns the named categories, or all of them when names is empty.
func (c Config) Select(names ...string) ([]Category, error) {
	if len(names) == 0 {
		return c.Categories, nil
	}
	var out []Category
	for _, name := range names {
		cat, ok := c.Category(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out = append(out, cat)
	}
	return out, nil
}

// Patterns are the compiled include/exclude expressions of a category.
type Patterns struct {
	Include *regexp.Regexp
	Exclude *regexp.Regexp
}

func (cat Category) ScanPatterns() (Patterns, error) {
	var p Patterns
	var err error
	if p.Include, err = regexp.Compile(cat.Include); err != nil {
		return p, fmt.Errorf("invalid include pattern: %w", err)
	}
	if cat.Exclude != "" {
		if p.Exclude, err = regexp.Compile(cat.Exclude); err != nil {
			return p, fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}
	return p, nil
}

// RootPath is the absolute fixture root.
func (cat Category) RootPath() string {
	return cat.resolve(cat.Root)
}

// RegistryPath is the absolute path of the generated registry manifest.
func (cat Category) RegistryPath() string {
	if cat.Registry == "" {
		return ""
	}
	return cat.resolve(cat.Registry)
}

// TimeoutDuration defaults to DefaultTimeout.
func (cat Category) TimeoutDuration() time.Duration {
	d, _ := parseDuration(cat.Timeout)
	if d == 0 {
		return DefaultTimeout
	}
	return d
}

func (cat Category) resolve(p string) string {
	if filepath.IsAbs(p) || cat.BaseDir == "" {
		return p
	}
	return filepath.Join(cat.BaseDir, p)
}

// TimeoutDuration is zero when unset.
func (c Configuration) TimeoutDuration() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
