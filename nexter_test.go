package lake_test

import (
	"sync"
	"testing"

	"github.com/pilosa/lake"
)

func TestNexter(t *testing.T) {
	n := lake.NewNexter(lake.NexterStartFrom(19))
	if num := n.Next(); num != 19 {
		t.Fatalf("expected 19 for Next, but %d", num)
	}
	if num := n.Last(); num != 19 {
		t.Fatalf("expected 19 for Last, but %d", num)
	}
}

func TestNexterConcurrent(t *testing.T) {
	n := lake.NewNexter()
	ids := make(chan uint64, 400)
	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ids <- n.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[uint64]struct{})
	for id := range ids {
		if _, ok := seen[id]; ok {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != 400 || n.Last() != 399 {
		t.Fatalf("expected 400 ids ending at 399, got %d ending at %d", len(seen), n.Last())
	}
}
