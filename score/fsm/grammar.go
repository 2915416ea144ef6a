// Package fsm is a stack-based contextual tokenizer. A grammar is a set of
// named contexts, each an ordered list of rules. At every position the rules
// of the current context are tried in order and the first one that matches
// wins; rules may push a nested context that collects its own tokens until
// one of its rules pops.
package fsm

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/dhamidi/tmlex/score/token"
)

// TokenFunc builds the token for a matched rule. content holds the tokens
// collected by the pushed context, if any. Returning nil emits nothing.
type TokenFunc func(m Match, content []token.Token) token.Token

type Rule struct {
	// Name is used in diagnostics and listings only.
	Name string
	// Pattern is matched at the scan position; it is anchored implicitly.
	Pattern string
	// Peek matches without consuming input.
	Peek bool
	// Pop ends the current context.
	Pop bool
	// Push names the context scanned after the match.
	Push string
	// Token builds the emitted token. A rule with Push and no Token splices
	// the pushed content into the current context; a rule with neither skips
	// the matched input.
	Token TokenFunc
	// Include, when set, makes the rule a placeholder for the rules provided
	// under that name.
	Include string
}

// Include returns a placeholder rule for the rules provided under name.
func Include(name string) Rule {
	return Rule{Include: name}
}

// Item returns a rule that turns every match into a token built by fn.
func Item(name, pattern string, fn func(m Match) token.Token) Rule {
	return Rule{
		Name:    name,
		Pattern: pattern,
		Token: func(m Match, _ []token.Token) token.Token {
			return fn(m)
		},
	}
}

// Skip returns a rule that consumes its match without emitting a token.
func Skip(pattern string) Rule {
	return Rule{Name: "skip", Pattern: pattern}
}

// PopOn returns a rule that ends the current context. With peek set the
// matched input is left for the enclosing context.
func PopOn(pattern string, peek bool) Rule {
	return Rule{Name: "pop", Pattern: pattern, Pop: true, Peek: peek}
}

// Builder assembles a grammar. Includes are resolved when Compile is called,
// so a compiled grammar never changes while scanning.
type Builder struct {
	contexts map[string][]Rule
	provided map[string][]Rule
}

func NewBuilder() *Builder {
	return &Builder{
		contexts: map[string][]Rule{},
		provided: map[string][]Rule{},
	}
}

// Define appends rules to a context.
func (b *Builder) Define(context string, rules ...Rule) *Builder {
	b.contexts[context] = append(b.contexts[context], rules...)
	return b
}

// Provide appends rules to an include set. Providing nothing still makes the
// set known, so including an empty set is not an error.
func (b *Builder) Provide(include string, rules ...Rule) *Builder {
	b.provided[include] = append(b.provided[include], rules...)
	return b
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Grammar is a compiled, immutable set of contexts.
type Grammar struct {
	contexts map[string][]*compiledRule
}

// Compile materializes includes, compiles patterns and checks that every
// pushed context exists.
func (b *Builder) Compile() (*Grammar, error) {
	g := &Grammar{contexts: make(map[string][]*compiledRule, len(b.contexts))}
	cache := map[string]*regexp.Regexp{}

	for name, rules := range b.contexts {
		flat, err := b.expand(rules, nil)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", name, err)
		}
		compiled := make([]*compiledRule, 0, len(flat))
		for _, r := range flat {
			re, ok := cache[r.Pattern]
			if !ok {
				re, err = regexp.Compile(`^(?:` + r.Pattern + `)`)
				if err != nil {
					return nil, fmt.Errorf("context %s: rule %s: %w", name, r.Name, err)
				}
				cache[r.Pattern] = re
			}
			compiled = append(compiled, &compiledRule{Rule: r, re: re})
		}
		g.contexts[name] = compiled
	}

	for name, rules := range g.contexts {
		for _, r := range rules {
			if r.Pop && r.Push != "" {
				return nil, fmt.Errorf("context %s: rule %s both pops and pushes", name, r.Name)
			}
			if r.Push != "" {
				if _, ok := g.contexts[r.Push]; !ok {
					return nil, fmt.Errorf("context %s: rule %s pushes unknown context %q", name, r.Name, r.Push)
				}
			}
		}
	}
	return g, nil
}

func (b *Builder) expand(rules []Rule, active []string) ([]Rule, error) {
	var out []Rule
	for _, r := range rules {
		if r.Include == "" {
			out = append(out, r)
			continue
		}
		for _, name := range active {
			if name == r.Include {
				return nil, fmt.Errorf("include %q is recursive", r.Include)
			}
		}
		provided, ok := b.provided[r.Include]
		if !ok {
			return nil, fmt.Errorf("include %q is not provided", r.Include)
		}
		expanded, err := b.expand(provided, append(active, r.Include))
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// Contexts lists the context names in sorted order.
func (g *Grammar) Contexts() []string {
	names := make([]string, 0, len(g.contexts))
	for name := range g.contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rules returns the materialized rules of a context.
func (g *Grammar) Rules(context string) []Rule {
	rules := make([]Rule, len(g.contexts[context]))
	for i, r := range g.contexts[context] {
		rules[i] = r.Rule
	}
	return rules
}
