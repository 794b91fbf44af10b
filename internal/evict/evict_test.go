package evict_test

import (
	"testing"
	"time"

	"github.com/svoer/FhirConverter-sub001/internal/evict"
	"github.com/svoer/FhirConverter-sub001/internal/evict/lfu"
	"github.com/svoer/FhirConverter-sub001/internal/evict/lru"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSelectVictim_Empty(t *testing.T) {
	if _, ok := evict.SelectVictim(lru.New(), nil); ok {
		t.Error("SelectVictim(nil) returned a victim, want none")
	}
}

func TestLRU_OldestAccessWins(t *testing.T) {
	candidates := []evict.Candidate{
		{Key: "b", LastAccessed: base.Add(2 * time.Minute)},
		{Key: "a", LastAccessed: base.Add(1 * time.Minute)},
		{Key: "c", LastAccessed: base.Add(3 * time.Minute)},
	}
	victim, ok := evict.SelectVictim(lru.New(), candidates)
	if !ok || victim != "a" {
		t.Errorf("SelectVictim = %q, %v, want \"a\", true", victim, ok)
	}
}

func TestLRU_TieBreaksOnKey(t *testing.T) {
	candidates := []evict.Candidate{
		{Key: "zz", LastAccessed: base},
		{Key: "aa", LastAccessed: base},
		{Key: "mm", LastAccessed: base},
	}
	victim, _ := evict.SelectVictim(lru.New(), candidates)
	if victim != "aa" {
		t.Errorf("tie-break victim = %q, want \"aa\"", victim)
	}
}

func TestLFU_LowestCountWins(t *testing.T) {
	candidates := []evict.Candidate{
		{Key: "hot", AccessCount: 9},
		{Key: "warm", AccessCount: 3},
		{Key: "cold", AccessCount: 1},
	}
	victim, _ := evict.SelectVictim(lfu.New(), candidates)
	if victim != "cold" {
		t.Errorf("SelectVictim = %q, want \"cold\"", victim)
	}
}

func TestLFU_TieBreaksOnKey(t *testing.T) {
	candidates := []evict.Candidate{
		{Key: "b", AccessCount: 2},
		{Key: "a", AccessCount: 2},
	}
	victim, _ := evict.SelectVictim(lfu.New(), candidates)
	if victim != "a" {
		t.Errorf("tie-break victim = %q, want \"a\"", victim)
	}
}

func TestRank_OrdersFirstVictimFirst(t *testing.T) {
	candidates := []evict.Candidate{
		{Key: "c", LastAccessed: base.Add(3 * time.Minute)},
		{Key: "a", LastAccessed: base.Add(1 * time.Minute)},
		{Key: "b", LastAccessed: base.Add(2 * time.Minute)},
	}
	evict.Rank(lru.New(), candidates)
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if candidates[i].Key != w {
			t.Errorf("Rank[%d] = %q, want %q", i, candidates[i].Key, w)
		}
	}
}

func TestPolicyNames(t *testing.T) {
	if got := lru.New().Name(); got != "lru" {
		t.Errorf("lru Name() = %q", got)
	}
	if got := lfu.New().Name(); got != "lfu" {
		t.Errorf("lfu Name() = %q", got)
	}
}
