package ortho

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Rule rewrites every match of Pattern into Meta.
type Rule struct {
	Pattern string
	Meta    string
	re      *regexp2.Regexp
}

// RuleSet is an ordered list of source-to-meta rules for one language.
//
// Order is part of the language configuration: rules run one after another,
// each on the output of the previous ones, so a later rule may match meta-letters
// produced by an earlier rule. A RuleSet is never reordered or deduplicated.
type RuleSet struct {
	rules []Rule
}

// RulesOptions configures ParseRules. Zero values select the defaults.
type RulesOptions struct {
	Name   string // resource name used in errors, default "rules"
	Logger *slog.Logger
}

// ParseRules reads one rule per line as "<pattern>\t<meta-letter>". Lines
// starting with '#' and blank lines are skipped, a leading byte-order mark is
// stripped. Patterns are backtracking regular expressions with lookarounds
// and Unicode \w and \b; meta-letters are literal.
func ParseRules(r io.Reader, opts RulesOptions) (*RuleSet, error) {
	if opts.Name == "" {
		opts.Name = "rules"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rs := &RuleSet{}
	seen := make(map[string]int)
	sc := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		pattern, meta, ok := strings.Cut(text, "\t")
		if !ok || strings.Contains(meta, "\t") {
			return nil, &LoadError{Resource: opts.Name, Line: line,
				Err: fmt.Errorf("expected exactly two tab-separated fields, got %q", text)}
		}
		if pattern == "" {
			return nil, &LoadError{Resource: opts.Name, Line: line, Err: fmt.Errorf("empty pattern")}
		}
		rule, err := NewRule(pattern, meta)
		if err != nil {
			return nil, &LoadError{Resource: opts.Name, Line: line, Err: err}
		}
		if prev, dup := seen[pattern]; dup {
			opts.Logger.Warn("duplicate rule pattern", "rules", opts.Name,
				"pattern", pattern, "line", line, "first", prev)
		} else {
			seen[pattern] = line
		}
		rs.rules = append(rs.rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, &LoadError{Resource: opts.Name, Line: line + 1, Err: err}
	}
	return rs, nil
}

// NewRule compiles pattern.
func NewRule(pattern, meta string) (Rule, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return Rule{}, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: pattern, Meta: meta, re: re}, nil
}

// NewRuleSet builds a RuleSet from already compiled rules, keeping their order.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the rules in application order.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Apply runs every rule on s in order. Each rule replaces all of its
// non-overlapping leftmost matches and the next rule scans the result.
func (rs *RuleSet) Apply(s string) (string, error) {
	for _, r := range rs.rules {
		out, err := r.re.ReplaceFunc(s, r.literal, -1, -1)
		if err != nil {
			return "", fmt.Errorf("rule %q: %w", r.Pattern, err)
		}
		s = out
	}
	return s, nil
}

func (r Rule) literal(regexp2.Match) string { return r.Meta }
