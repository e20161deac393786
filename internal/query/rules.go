package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ErrInvalidRule is returned when a smart-playlist rule payload cannot be
// understood.
var ErrInvalidRule = errors.New("invalid smart playlist rule")

// Operator compares an item's duration against a rule value.
type Operator string

const (
	OpGreater Operator = "gt"
	OpLess    Operator = "lt"
)

// Rule is one smart-playlist rule: an AuthorRule, TitleRule or DurationRule.
type Rule interface {
	ruleType() string
}

// AuthorRule matches items whose show name is one of Authors.
type AuthorRule struct {
	Authors []string
}

// TitleRule matches items whose title contains any of Keywords.
type TitleRule struct {
	Keywords []string
}

// DurationRule matches items longer (OpGreater) or shorter (OpLess) than
// Seconds.
type DurationRule struct {
	Op      Operator
	Seconds int
}

func (AuthorRule) ruleType() string   { return "author" }
func (TitleRule) ruleType() string    { return "title" }
func (DurationRule) ruleType() string { return "duration" }

// RuleSet is the rule list of a smart playlist. A nil RuleSet on a Request
// means the caller supplied none; an empty one means "no rules".
type RuleSet []Rule

type wireRule struct {
	Type     string `json:"type"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value"`
}

// ParseRules decodes a JSON rule list such as
//
//	[{"type":"author","value":["A","B"]},{"type":"duration","operator":"gt","value":600}]
//
// Values are coerced: a single string becomes a one-element list and numeric
// strings are accepted as durations. Author and title rules with no values
// are dropped.
func ParseRules(data []byte) (RuleSet, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return RuleSet{}, nil
	}

	var raw []wireRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	rules := RuleSet{}
	for i, w := range raw {
		switch w.Type {
		case "author", "title":
			values, err := stringValues(w.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: rule %d: %v", ErrInvalidRule, i, err)
			}
			if len(values) == 0 {
				continue
			}
			if w.Type == "author" {
				rules = append(rules, AuthorRule{Authors: values})
			} else {
				rules = append(rules, TitleRule{Keywords: values})
			}

		case "duration":
			op := Operator(w.Operator)
			if op != OpGreater && op != OpLess {
				return nil, fmt.Errorf("%w: rule %d: unknown operator %q", ErrInvalidRule, i, w.Operator)
			}
			seconds, err := cast.ToIntE(w.Value)
			if err != nil || seconds < 0 {
				return nil, fmt.Errorf("%w: rule %d: duration %v is not a number of seconds", ErrInvalidRule, i, w.Value)
			}
			rules = append(rules, DurationRule{Op: op, Seconds: seconds})

		default:
			return nil, fmt.Errorf("%w: rule %d: unknown type %q", ErrInvalidRule, i, w.Type)
		}
	}
	return rules, nil
}

func stringValues(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
	values, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, err
	}
	out := values[:0]
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// MarshalJSON writes the canonical wire form accepted by ParseRules.
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	out := make([]wireRule, 0, len(rs))
	for _, r := range rs {
		w := wireRule{Type: r.ruleType()}
		switch r := r.(type) {
		case AuthorRule:
			w.Value = r.Authors
		case TitleRule:
			w.Value = r.Keywords
		case DurationRule:
			w.Operator = string(r.Op)
			w.Value = r.Seconds
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

// clauses turns the rule set into SQL. Authors form one IN group, keywords
// one OR group, and each duration rule its own clause; the caller ANDs them.
func (rs RuleSet) clauses() (where []string, args []any) {
	var authors, keywords []string
	for _, r := range rs {
		switch r := r.(type) {
		case AuthorRule:
			authors = append(authors, r.Authors...)
		case TitleRule:
			keywords = append(keywords, r.Keywords...)
		}
	}

	if len(authors) > 0 {
		where = append(where, "show_title IN ("+placeholders(len(authors))+")")
		for _, a := range authors {
			args = append(args, a)
		}
	}

	if len(keywords) > 0 {
		likes := make([]string, len(keywords))
		for i, k := range keywords {
			likes[i] = `title LIKE ? ESCAPE '\'`
			args = append(args, contains(k))
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}

	for _, r := range rs {
		if d, ok := r.(DurationRule); ok {
			if d.Op == OpGreater {
				where = append(where, "duration > ?")
			} else {
				where = append(where, "duration < ?")
			}
			args = append(args, d.Seconds)
		}
	}
	return where, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains returns a LIKE pattern matching s anywhere in the column.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
