// Package heuristics classifies macro source against a keyword taxonomy
// of auto-execution triggers, suspicious calls and indicators of
// compromise.
package heuristics

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups findings.
type Category string

const (
	Suspicious Category = "suspicious"
	AutoExec   Category = "auto_exec"
	IOC        Category = "ioc"
)

// Match is a single keyword or indicator found in macro source.
type Match struct {
	Category    Category
	Keyword     string
	Description string
}

// Rule is a literal keyword matched case-insensitively on word boundaries.
type Rule struct {
	Keyword     string `yaml:"keyword"`
	Description string `yaml:"description"`
}

// Pattern is an indicator regular expression. Every distinct match becomes
// its own finding.
type Pattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// Taxonomy is a compiled keyword set. The zero value matches nothing; use
// Default or Load.
type Taxonomy struct {
	AutoExec   []Rule    `yaml:"auto_exec"`
	Suspicious []Rule    `yaml:"suspicious"`
	IOC        []Pattern `yaml:"ioc"`
	// Replace discards the built-in rules instead of extending them when
	// the taxonomy is loaded from a file.
	Replace bool `yaml:"replace"`

	autoExec   []compiledRule
	suspicious []compiledRule
	iocs       []compiledPattern
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t := &Taxonomy{
		AutoExec:   append([]Rule(nil), defaultAutoExec...),
		Suspicious: append([]Rule(nil), defaultSuspicious...),
		IOC:        append([]Pattern(nil), defaultIOC...),
	}
	if err := t.compile(); err != nil {
		panic(fmt.Sprintf("heuristics: built-in taxonomy does not compile: %v", err))
	}
	return t
}

// Load reads a YAML taxonomy file. Unless the file sets replace: true its
// rules extend the built-in ones, and a keyword present in both keeps the
// file's description.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read taxonomy %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a taxonomy from YAML bytes.
func Parse(data []byte) (*Taxonomy, error) {
	var file Taxonomy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid taxonomy YAML: %w", err)
	}

	t := &file
	if !file.Replace {
		t = &Taxonomy{
			AutoExec:   mergeRules(defaultAutoExec, file.AutoExec),
			Suspicious: mergeRules(defaultSuspicious, file.Suspicious),
			IOC:        mergePatterns(defaultIOC, file.IOC),
		}
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return t, nil
}

func mergeRules(base, extra []Rule) []Rule {
	out := append([]Rule(nil), base...)
	pos := make(map[string]int, len(out))
	for i, r := range out {
		pos[strings.ToLower(r.Keyword)] = i
	}
	for _, r := range extra {
		if i, ok := pos[strings.ToLower(r.Keyword)]; ok {
			out[i] = r
			continue
		}
		pos[strings.ToLower(r.Keyword)] = len(out)
		out = append(out, r)
	}
	return out
}

func mergePatterns(base, extra []Pattern) []Pattern {
	out := append([]Pattern(nil), base...)
	for _, p := range extra {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name {
				out[i] = p
				replaced = true
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func (t *Taxonomy) compile() error {
	var err error
	if t.autoExec, err = compileRules(t.AutoExec); err != nil {
		return err
	}
	if t.suspicious, err = compileRules(t.Suspicious); err != nil {
		return err
	}
	t.iocs = t.iocs[:0]
	for _, p := range t.IOC {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return fmt.Errorf("invalid IOC pattern %q: %w", p.Name, err)
		}
		t.iocs = append(t.iocs, compiledPattern{Pattern: p, re: re})
	}
	return nil
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Keyword) == "" {
			return nil, fmt.Errorf("taxonomy rule with empty keyword")
		}
		re, err := regexp.Compile(`(?i)(^|[^\w])` + regexp.QuoteMeta(r.Keyword) + `([^\w]|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword %q: %w", r.Keyword, err)
		}
		out = append(out, compiledRule{Rule: r, re: re})
	}
	return out, nil
}

// Scan returns the auto-exec, suspicious and IOC matches in code, in that
// order. Each keyword is reported at most once; each distinct indicator
// value is reported once.
func (t *Taxonomy) Scan(code string) []Match {
	var out []Match
	for _, r := range t.autoExec {
		if r.re.MatchString(code) {
			out = append(out, Match{Category: AutoExec, Keyword: r.Keyword, Description: r.Description})
		}
	}
	for _, r := range t.suspicious {
		if r.re.MatchString(code) {
			out = append(out, Match{Category: Suspicious, Keyword: r.Keyword, Description: r.Description})
		}
	}
	seen := make(map[string]bool)
	for _, p := range t.iocs {
		for _, v := range p.re.FindAllString(code, -1) {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, Match{Category: IOC, Keyword: v, Description: p.Name})
		}
	}
	return out
}
