package chatlog

import (
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func lenMeasure(msg Message) int {
	return len(msg.Text) + 1
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	log := New(Options{Clock: fixedClock()})
	first := log.Append("hi", RoleUser)
	second := log.Append("hello!", RoleAgent)

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d,%d want 1,2", first.Seq, second.Seq)
	}
	if !second.Time.After(first.Time) {
		t.Fatalf("timestamps not increasing: %v %v", first.Time, second.Time)
	}
	msgs := log.Messages()
	if len(msgs) != 2 || msgs[0].Role != RoleUser || msgs[1].Role != RoleAgent {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	log := New(Options{})
	log.Append("original", RoleAgent)

	msgs := log.Messages()
	msgs[0].Text = "mutated"

	got, _ := log.At(0)
	if got.Text != "original" {
		t.Fatalf("log was mutated through returned slice: %q", got.Text)
	}
}

func TestHeightCacheIncrementalMatchesRecompute(t *testing.T) {
	log := New(Options{Measure: lenMeasure})
	for _, text := range []string{"a", "bb", "ccc", "dddd"} {
		log.Append(text, RoleUser)
	}
	incremental := log.TotalHeight()
	if incremental != 2+3+4+5 {
		t.Fatalf("total = %d, want 14", incremental)
	}

	log.SetMeasure(lenMeasure)
	if log.TotalHeight() != incremental {
		t.Fatalf("recomputed total %d differs from incremental %d", log.TotalHeight(), incremental)
	}

	log.SetMeasure(func(Message) int { return 10 })
	if log.TotalHeight() != 40 {
		t.Fatalf("total after measure change = %d, want 40", log.TotalHeight())
	}
	heights := log.Heights()
	if len(heights) != 4 || heights[0] != 10 {
		t.Fatalf("heights = %v", heights)
	}
}

func TestClearKeepsSequenceMonotonic(t *testing.T) {
	log := New(Options{Measure: lenMeasure})
	log.Append("a", RoleUser)
	log.Append("b", RoleAgent)
	log.Clear()

	if log.Len() != 0 || log.TotalHeight() != 0 || log.Bytes() != 0 {
		t.Fatalf("clear left len=%d total=%d bytes=%d", log.Len(), log.TotalHeight(), log.Bytes())
	}
	msg := log.Append("c", RoleUser)
	if msg.Seq != 3 {
		t.Fatalf("seq after clear = %d, want 3", msg.Seq)
	}
}

func TestRetention(t *testing.T) {
	t.Run("max messages", func(t *testing.T) {
		log := New(Options{Measure: lenMeasure, Retention: Retention{MaxMessages: 2}})
		log.Append("one", RoleUser)
		log.Append("two", RoleAgent)
		log.Append("three", RoleUser)

		msgs := log.Messages()
		if len(msgs) != 2 || msgs[0].Text != "two" || msgs[1].Text != "three" {
			t.Fatalf("messages = %+v", msgs)
		}
		if log.TotalHeight() != 4+6 {
			t.Fatalf("total = %d, want 10", log.TotalHeight())
		}
	})

	t.Run("max bytes keeps newest", func(t *testing.T) {
		log := New(Options{Retention: Retention{MaxBytes: 4}})
		log.Append("ab", RoleUser)
		log.Append("cd", RoleAgent)
		log.Append("toolong", RoleUser)

		msgs := log.Messages()
		if len(msgs) != 1 || msgs[0].Text != "toolong" {
			t.Fatalf("messages = %+v", msgs)
		}
		if log.Bytes() != len("toolong") {
			t.Fatalf("bytes = %d", log.Bytes())
		}
	})
}

func TestLastAndFind(t *testing.T) {
	log := New(Options{})
	log.Append("what is the weather", RoleUser)
	log.Append("It is sunny today", RoleAgent)
	log.Append("thanks", RoleUser)
	log.Append("You are welcome", RoleAgent)

	last, ok := log.Last(RoleAgent)
	if !ok || last.Text != "You are welcome" {
		t.Fatalf("Last(agent) = %+v,%v", last, ok)
	}

	hits := log.Find("sunny")
	if len(hits) == 0 || hits[0] != 1 {
		t.Fatalf("Find(sunny) = %v, want first hit 1", hits)
	}
	if hits := log.Find("   "); hits != nil {
		t.Fatalf("blank query should return nil, got %v", hits)
	}
	if hits := log.Find("zzzz"); len(hits) != 0 {
		t.Fatalf("Find(zzzz) = %v, want none", hits)
	}
}
