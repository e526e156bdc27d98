package pipeline

import (
	"context"
	"errors"
	"testing"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestExtractFromModelReply(t *testing.T) {
	cases := []struct {
		name     string
		reply    string
		wantItem string
		wantQty  int
	}{
		{
			name:     "clean json",
			reply:    `{"item_name": "Laptop i7 16GB", "quantity": 10}`,
			wantItem: "Laptop i7 16GB",
			wantQty:  10,
		},
		{
			name:     "json wrapped in prose and fences",
			reply:    "Sure, here you go:\n```json\n{\"item_name\": \"Desktop Ryzen 7\", \"quantity\": 3}\n```",
			wantItem: "Desktop Ryzen 7",
			wantQty:  3,
		},
		{
			name:     "quantity as string",
			reply:    `{"item_name": "4K Monitor 27in", "quantity": "7"}`,
			wantItem: "4K Monitor 27in",
			wantQty:  7,
		},
		{
			name:     "unknown item is fuzzy-substituted",
			reply:    `{"item_name": "laptops", "quantity": 2}`,
			wantItem: "Laptop i7 16GB",
			wantQty:  2,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := NewExtractor(stubCompleter{reply: c.reply}, 0.5, demoNames)
			req, ok := e.Extract(context.Background(), "whatever the user said")
			if !ok {
				t.Fatal("Extract returned ok=false")
			}
			if req.ItemName != c.wantItem || req.Quantity != c.wantQty {
				t.Fatalf("got %+v, want {%s %d}", req, c.wantItem, c.wantQty)
			}
		})
	}
}

func TestExtractFallsBackOnBadReplies(t *testing.T) {
	replies := []string{
		"I cannot help with that.",
		`{"item_name": "", "quantity": 5}`,
		`{"item_name": "Laptop i7 16GB"}`,
		`{"item_name": "Laptop i7 16GB", "quantity": "soon"}`,
		`{"item_name": "Laptop i7 16GB", "quantity": 0}`,
		`{"item_name": "Laptop i7 16GB", "quantity": -2}`,
	}
	for _, reply := range replies {
		e := NewExtractor(stubCompleter{reply: reply}, 0.5, demoNames)
		req, ok := e.Extract(context.Background(), "need 10 laptops")
		if !ok {
			t.Fatalf("reply %q: fallback did not produce a requirement", reply)
		}
		if req.ItemName != "Laptop i7 16GB" || req.Quantity != 10 {
			t.Fatalf("reply %q: got %+v, want {Laptop i7 16GB 10}", reply, req)
		}
	}
}

func TestExtractFallsBackOnModelError(t *testing.T) {
	e := NewExtractor(stubCompleter{err: errors.New("rate limited")}, 0.5, demoNames)
	req, ok := e.Extract(context.Background(), "2 desktops please")
	if !ok || req.ItemName != "Desktop Ryzen 7" || req.Quantity != 2 {
		t.Fatalf("got (%+v, %v)", req, ok)
	}
}

func TestExtractWithoutCompleter(t *testing.T) {
	e := NewExtractor(nil, 0.5, demoNames)

	req, ok := e.Extract(context.Background(), "need 10 laptops")
	if !ok || req.ItemName != "Laptop i7 16GB" || req.Quantity != 10 {
		t.Fatalf("got (%+v, %v)", req, ok)
	}

	// No digits anywhere defaults the quantity to one.
	req, ok = e.Extract(context.Background(), "a monitor")
	if !ok || req.ItemName != "4K Monitor 27in" || req.Quantity != 1 {
		t.Fatalf("got (%+v, %v)", req, ok)
	}

	// Nothing resembling a catalog item at all.
	if _, ok := e.Extract(context.Background(), "zzzz qqqq"); ok {
		t.Fatal("expected ok=false for unmatched text")
	}
}
