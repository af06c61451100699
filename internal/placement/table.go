// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package placement

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docmark/pkg/types"
)

//go:embed captions.yaml
var defaultCaptions []byte

// Rule is one caption pattern with its scoring.
type Rule struct {
	Name          string   `yaml:"name"`
	Pattern       string   `yaml:"pattern"`
	NotFollowedBy string   `yaml:"not_followed_by,omitempty"`
	Score         float64  `yaml:"score"`
	DashScore     float64  `yaml:"dash_score,omitempty"`
	Bonus         float64  `yaml:"bonus,omitempty"`
	Keywords      []string `yaml:"keywords,omitempty"`

	re      *regexp.Regexp
	exclude *regexp.Regexp
}

// Table is an ordered list of caption rules.
type Table struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultTable returns the embedded caption table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultCaptions)
	if err != nil {
		panic(fmt.Sprintf("embedded caption table: %v", err))
	}
	return t
}

// LoadTable reads a caption table from path. An empty path yields the
// embedded table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading caption table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and compiles a YAML caption table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing caption table: %w", err)
	}
	if len(t.Rules) == 0 {
		return nil, fmt.Errorf("caption table has no rules")
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.re = re
		if r.NotFollowedBy != "" {
			if r.exclude, err = regexp.Compile(r.NotFollowedBy); err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
		}
		if r.Score < 0 || r.Score > 1 {
			return nil, fmt.Errorf("rule %q: score %.2f outside [0,1]", r.Name, r.Score)
		}
	}
	return &t, nil
}

// Score returns the best caption reference on line, if any rule matches.
func (t *Table) Score(lineIndex int, line string) (ref types.CaptionReference, ok bool) {
	for _, r := range t.Rules {
		primary, secondary, matched := r.match(line)
		if !matched {
			continue
		}
		score := r.Score
		if r.DashScore > 0 && strings.Contains(line, "图") && strings.ContainsAny(line, "-–—") {
			score = r.DashScore
		}
		for _, kw := range r.Keywords {
			if strings.Contains(line, kw) {
				score += r.Bonus
				break
			}
		}
		score = min(score, 1)
		if !ok || score > ref.Score {
			ref = types.CaptionReference{
				LineIndex: lineIndex,
				Primary:   primary,
				Secondary: secondary,
				Score:     score,
				Pattern:   r.Name,
			}
			ok = true
		}
	}
	return ref, ok
}

// Scan returns one reference per matching line, in line order.
func (t *Table) Scan(lines []string) []types.CaptionReference {
	var refs []types.CaptionReference
	for i, line := range lines {
		if ref, ok := t.Score(i, line); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (r Rule) match(line string) (primary, secondary int, ok bool) {
	for _, loc := range r.re.FindAllStringSubmatchIndex(line, -1) {
		if r.exclude != nil && r.exclude.MatchString(line[loc[1]:]) {
			continue
		}
		if len(loc) >= 4 && loc[2] >= 0 {
			primary, _ = strconv.Atoi(line[loc[2]:loc[3]])
		}
		if len(loc) >= 6 && loc[4] >= 0 {
			secondary, _ = strconv.Atoi(line[loc[4]:loc[5]])
		}
		return primary, secondary, true
	}
	return 0, 0, false
}
