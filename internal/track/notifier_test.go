package track

import "testing"

func TestNotifierBroadcastReachesAllListeners(t *testing.T) {
	n := NewNotifier()
	var a, b []bool
	cancelA := n.Subscribe(func(v bool) { a = append(a, v) })
	cancelB := n.Subscribe(func(v bool) { b = append(b, v) })

	n.Broadcast(true)
	if len(a) != 1 || len(b) != 1 || !a[0] || !b[0] {
		t.Fatalf("expected both listeners to see true, got %v %v", a, b)
	}

	cancelA()
	n.Broadcast(false)
	if len(a) != 1 {
		t.Fatalf("expected cancelled listener untouched, got %v", a)
	}
	if len(b) != 2 || b[1] {
		t.Fatalf("expected second listener to see false, got %v", b)
	}

	cancelB()
	cancelB() // double cancel must be safe
	n.Broadcast(true)
	if len(b) != 2 {
		t.Fatalf("expected no delivery after cancel, got %v", b)
	}
}
