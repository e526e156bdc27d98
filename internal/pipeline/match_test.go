package pipeline

import "testing"

var demoNames = []string{"Laptop i7 16GB", "Desktop Ryzen 7", "4K Monitor 27in"}

func TestBestMatch(t *testing.T) {
	m := NewMatcher(0.5, demoNames)

	cases := []struct {
		query string
		want  string
		ok    bool
	}{
		{"Laptop i7 16GB", "Laptop i7 16GB", true},
		{"laptop", "Laptop i7 16GB", true},
		{"need 10 laptops", "Laptop i7 16GB", true},
		{"monitor", "4K Monitor 27in", true},
		{"desktop ryzen", "Desktop Ryzen 7", true},
		{"forklift", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, score, ok := m.BestMatch(c.query)
		if ok != c.ok || got != c.want {
			t.Errorf("BestMatch(%q) = (%q, %.3f, %v), want (%q, _, %v)",
				c.query, got, score, ok, c.want, c.ok)
		}
		if ok && score < 0.5 {
			t.Errorf("BestMatch(%q) reported ok with score %.3f below floor", c.query, score)
		}
	}
}

func TestBestMatchTieBreakKeepsFirstCandidate(t *testing.T) {
	m := NewMatcher(0.5, []string{"Cable Red", "Cable Blue"})
	got, _, ok := m.BestMatch("cable")
	if !ok || got != "Cable Red" {
		t.Fatalf("got (%q, %v), want first-listed candidate Cable Red", got, ok)
	}
}

func TestBestMatchNoCandidates(t *testing.T) {
	m := NewMatcher(0.5, nil)
	if _, _, ok := m.BestMatch("laptop"); ok {
		t.Fatal("expected no match with an empty candidate list")
	}
}

func TestScoreBounds(t *testing.T) {
	if s := Score("laptop", "laptop"); s != 1 {
		t.Errorf("identical strings score %.3f, want 1", s)
	}
	if s := Score("xyz", "laptop"); s >= 0.5 {
		t.Errorf("unrelated strings score %.3f, want below 0.5", s)
	}
}
