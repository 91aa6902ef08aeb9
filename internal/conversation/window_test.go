package conversation

import (
	"fmt"
	"testing"
)

func seq(prefix string, n int) []Message {
	out := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Message{ID: fmt.Sprintf("%s-%d", prefix, i), Role: RoleUser, Content: fmt.Sprintf("%s %d", prefix, i)})
	}
	return out
}

func ids(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestAppendBoundedAndSuffix(t *testing.T) {
	t.Parallel()

	for _, existingN := range []int{0, 1, 39, 40} {
		for _, incomingN := range []int{0, 1, 2, 40, 41, 100} {
			existing := seq("e", existingN)
			incoming := seq("i", incomingN)
			got := Append(existing, incoming)

			full := append(append([]Message{}, existing...), incoming...)
			wantLen := len(full)
			if wantLen > MaxMessages {
				wantLen = MaxMessages
			}
			if len(got) != wantLen {
				t.Fatalf("existing=%d incoming=%d: len=%d want %d", existingN, incomingN, len(got), wantLen)
			}
			want := full[len(full)-wantLen:]
			for i := range want {
				if got[i].ID != want[i].ID {
					t.Fatalf("existing=%d incoming=%d: position %d = %s, want %s", existingN, incomingN, i, got[i].ID, want[i].ID)
				}
			}
		}
	}
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	window := seq("e", MaxMessages)
	got := Append(window, []Message{{ID: "new", Role: RoleUser, Content: "hi"}})
	if len(got) != MaxMessages {
		t.Fatalf("expected %d messages, got %d", MaxMessages, len(got))
	}
	if got[0].ID != "e-1" {
		t.Fatalf("oldest message should be evicted, first is %s", got[0].ID)
	}
	if got[len(got)-1].ID != "new" {
		t.Fatalf("newest message should be last, got %s", got[len(got)-1].ID)
	}
}

func TestAppendIdempotentWithEmptyIncoming(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 5, 40, 55} {
		existing := seq("e", n)
		once := Append(existing, nil)
		twice := Append(once, nil)
		if fmt.Sprint(ids(once)) != fmt.Sprint(ids(twice)) {
			t.Fatalf("n=%d: append with empty incoming is not idempotent", n)
		}
		if n <= MaxMessages && fmt.Sprint(ids(once)) != fmt.Sprint(ids(existing)) {
			t.Fatalf("n=%d: window within bound must be unchanged", n)
		}
	}
}

func TestAppendUpsertsByID(t *testing.T) {
	t.Parallel()

	existing := seq("e", 3)
	replacement := Message{ID: "e-1", Role: RoleAssistant, Content: "edited"}
	got := Append(existing, []Message{replacement, {ID: "x", Role: RoleUser, Content: "x"}})

	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	if got[1].Content != "edited" || got[1].Role != RoleAssistant {
		t.Fatalf("message e-1 should be replaced in place, got %#v", got[1])
	}
	if got[3].ID != "x" {
		t.Fatalf("new message should be appended, got %s", got[3].ID)
	}
}

func TestAppendWithoutIDAlwaysAppends(t *testing.T) {
	t.Parallel()

	got := Append([]Message{{Role: RoleUser, Content: "a"}}, []Message{{Role: RoleUser, Content: "a"}})
	if len(got) != 2 {
		t.Fatalf("expected both id-less messages, got %d", len(got))
	}
}

func TestAppendDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	existing := seq("e", MaxMessages)
	before := fmt.Sprint(ids(existing))
	incoming := []Message{{ID: "e-0", Content: "changed"}, {ID: "n", Content: "n"}}
	_ = Append(existing, incoming)
	if fmt.Sprint(ids(existing)) != before || existing[0].Content != "e 0" {
		t.Fatalf("existing slice was modified")
	}
	if incoming[0].Content != "changed" {
		t.Fatalf("incoming slice was modified")
	}
}

func TestAppendNUnlimited(t *testing.T) {
	t.Parallel()

	got := AppendN(seq("e", 50), seq("i", 10), 0)
	if len(got) != 60 {
		t.Fatalf("limit 0 keeps everything, got %d", len(got))
	}
}

func TestTwoTurnsYieldFourMessages(t *testing.T) {
	t.Parallel()

	var window []Message
	window = Append(window, []Message{UserMessage("hello")})
	window = Append(window, []Message{AssistantMessage("hi there")})
	window = Append(window, []Message{UserMessage("price?")})
	window = Append(window, []Message{AssistantMessage("20-30 RMB/kg")})

	if len(window) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(window))
	}
	roles := []string{RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	for i, role := range roles {
		if window[i].Role != role {
			t.Fatalf("message %d role=%s want %s", i, window[i].Role, role)
		}
	}
}
