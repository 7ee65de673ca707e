// Package policy implements the proxy's rule engine: a priority-ordered
// list of tool-name glob patterns, each mapped to allow, block,
// rate-limit, or log-only, plus the per-rule sliding-window rate limiters
// those RateLimit actions need.
package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
)

// ActionKind discriminates the concrete payload a RuleAction carries.
type ActionKind string

const (
	ActionAllow     ActionKind = "allow"
	ActionBlock     ActionKind = "block"
	ActionRateLimit ActionKind = "rate_limit"
	ActionLog       ActionKind = "log"
)

// RuleAction is what a matching rule does to a tool call. Exactly the
// fields relevant to Kind are populated.
type RuleAction struct {
	Kind       ActionKind `yaml:"type"`
	Reason     string     `yaml:"reason,omitempty"`      // Block
	MaxCalls   uint32     `yaml:"max_calls,omitempty"`   // RateLimit
	WindowSecs uint64     `yaml:"window_secs,omitempty"` // RateLimit
}

// ProxyRule is one entry in a rule file: a glob over tool names, an
// action, and a priority used to break ties when more than one rule
// matches the same tool.
type ProxyRule struct {
	ID          string     `yaml:"id"`
	ToolPattern string     `yaml:"tool_pattern"`
	Action      RuleAction `yaml:"action"`
	Priority    int32      `yaml:"priority"`
}

type compiledRule struct {
	rule    ProxyRule
	pattern glob.Glob
}

// RateLimited is returned by Evaluate when a RateLimit rule's window is
// exhausted.
type RateLimited struct {
	Tool string
}

// ResultKind discriminates an Evaluate outcome.
type ResultKind int

const (
	ResultAllow ResultKind = iota
	ResultBlock
	ResultRateLimited
)

// Result is the outcome of evaluating a tool name against the rule set.
type Result struct {
	Kind   ResultKind
	Reason string // Block only
	Tool   string // RateLimited only
}

// RuleEngine holds a compiled, priority-sorted rule list and the rate
// limiter state those rules accumulate as calls are evaluated.
type RuleEngine struct {
	mu      sync.RWMutex
	rules   []compiledRule
	limiter *rateLimiterSet
}

// NewRuleEngine builds an empty RuleEngine. With no rules added, Evaluate
// always returns Allow.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{limiter: newRateLimiterSet()}
}

// AddRule compiles rule's glob pattern and inserts it, then re-sorts the
// rule set by priority descending. A stable sort preserves insertion order
// among equal priorities, so two rules added in a given order with the
// same priority keep that order rather than flipping arbitrarily.
func (e *RuleEngine) AddRule(rule ProxyRule) error {
	pattern, err := glob.Compile(rule.ToolPattern)
	if err != nil {
		return fmt.Errorf("policy: invalid rule pattern %q: %w", rule.ToolPattern, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, compiledRule{rule: rule, pattern: pattern})
	stableSortByPriorityDesc(e.rules)
	return nil
}

// Rules returns a copy of the currently loaded rule set, in evaluation
// order.
func (e *RuleEngine) Rules() []ProxyRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ProxyRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}

// Replace atomically swaps the entire rule set, compiling every pattern
// first so a single malformed rule in a reloaded file can't leave the
// engine half-updated.
func (e *RuleEngine) Replace(rules []ProxyRule) error {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		pattern, err := glob.Compile(r.ToolPattern)
		if err != nil {
			return fmt.Errorf("policy: invalid rule pattern %q (rule %s): %w", r.ToolPattern, r.ID, err)
		}
		compiled[i] = compiledRule{rule: r, pattern: pattern}
	}
	stableSortByPriorityDesc(compiled)

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	return nil
}

// Evaluate walks the rule set in priority order and returns the first
// matching rule's outcome. Allow, Block, and RateLimit all short-circuit
// immediately, whether the rate limit's window is exhausted or not; Log
// never short-circuits, so evaluation continues to the next matching rule.
// No match falls through to Allow.
func (e *RuleEngine) Evaluate(toolName string) Result {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, c := range rules {
		if !c.pattern.Match(toolName) {
			continue
		}
		switch c.rule.Action.Kind {
		case ActionAllow:
			return Result{Kind: ResultAllow}
		case ActionBlock:
			return Result{Kind: ResultBlock, Reason: c.rule.Action.Reason}
		case ActionRateLimit:
			key := c.rule.ID + ":" + toolName
			if !e.limiter.checkAndRecord(key, c.rule.Action.MaxCalls, c.rule.Action.WindowSecs) {
				return Result{Kind: ResultRateLimited, Tool: toolName}
			}
			return Result{Kind: ResultAllow}
		case ActionLog:
			// Marks the call for audit but never blocks; keep scanning.
		}
	}

	return Result{Kind: ResultAllow}
}

// stableSortByPriorityDesc sorts descending by priority, stably — two
// rules of equal priority keep their insertion order rather than an
// unstable sort flipping them arbitrarily.
func stableSortByPriorityDesc(rules []compiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].rule.Priority > rules[j].rule.Priority
	})
}
