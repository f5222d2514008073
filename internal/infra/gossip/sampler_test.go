package gossip

import (
	"math/rand"
	"testing"

	"github.com/tutu-network/groupmember/internal/domain"
)

func TestSample_ReturnsFullRegisterWhenSmall(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	reg := map[domain.ProcessId]domain.Tag{
		"a": {Timestamp: 1, Generation: 1},
		"b": {Timestamp: 2, Generation: 2},
	}

	out := Sample(rng, reg, 20)
	if len(out) != 2 {
		t.Fatalf("Sample() returned %d entries, want 2 (full register)", len(out))
	}
}

func TestSample_BoundedBySize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	reg := make(map[domain.ProcessId]domain.Tag, 50)
	for i := 0; i < 50; i++ {
		reg[domain.ProcessId(rune('a'+i%26))] = domain.Tag{Generation: int64(i)}
	}

	out := Sample(rng, reg, 20)
	if len(out) > 20 {
		t.Fatalf("Sample() returned %d entries, want <= 20", len(out))
	}
}

func TestSample_EmptyRegister(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	out := Sample(rng, map[domain.ProcessId]domain.Tag{}, 20)
	if len(out) != 0 {
		t.Errorf("Sample() of empty register = %d entries, want 0", len(out))
	}
}

func TestSample_DefaultsSizeWhenNonPositive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	reg := make(map[domain.ProcessId]domain.Tag, 30)
	for i := 0; i < 30; i++ {
		reg[domain.ProcessId(rune('a'+i))] = domain.Tag{Generation: int64(i)}
	}

	out := Sample(rng, reg, 0)
	if len(out) != DefaultSampleSize {
		t.Errorf("Sample() with size<=0 returned %d entries, want %d", len(out), DefaultSampleSize)
	}
}
