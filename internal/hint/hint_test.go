package hint

import (
	"strings"
	"testing"
)

func newTestMatcher(t *testing.T, rules []Rule) *Matcher {
	t.Helper()
	m, err := NewMatcher(rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestNoMatch(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t, []Rule{
		{Pattern: "duplicate key", Message: "The row already exists."},
	})
	if got := m.Match("syntax error at or near SELEC"); got != "" {
		t.Fatalf("expected empty hint, got %q", got)
	}
	if got := m.Patterns("syntax error"); got != nil {
		t.Fatalf("expected nil patterns, got %v", got)
	}
}

func TestSingleMatch(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t, []Rule{
		{Pattern: "duplicate key", Message: "The row already exists."},
	})
	got := m.Match(`duplicate key value violates unique constraint "users_pkey"`)
	if got != "The row already exists." {
		t.Fatalf("unexpected hint: %q", got)
	}
}

func TestMultipleMatchesJoined(t *testing.T) {
	t.Parallel()
	m := newTestMatcher(t, []Rule{
		{Pattern: "timeout", Message: "Narrow the query."},
		{Pattern: "statement", Message: "Check the statement."},
	})
	got := m.Match("canceling statement due to statement timeout")
	if !strings.Contains(got, "Narrow the query.") || !strings.Contains(got, "Check the statement.") {
		t.Fatalf("expected both hints, got %q", got)
	}
	if len(m.Patterns("canceling statement due to statement timeout")) != 2 {
		t.Fatal("expected both patterns to match")
	}
}

func TestInvalidPattern(t *testing.T) {
	t.Parallel()
	_, err := NewMatcher([]Rule{{Pattern: "[broken(", Message: "x"}})
	if err == nil || !strings.Contains(err.Error(), "invalid regex") {
		t.Fatalf("expected invalid regex error, got %v", err)
	}
}
