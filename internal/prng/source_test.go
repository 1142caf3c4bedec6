package prng

import (
	"bytes"
	"math/big"
	"sync"
	"testing"
)

func TestSystemSource_ReadsBigEndian(t *testing.T) {
	src := NewSystemSource(bytes.NewReader([]byte{0xAB, 0xCD, 0xEF}))

	if got := src.Bits(12).Int64(); got != 0xABC {
		t.Errorf("Bits(12) = %#x, want 0xabc", got)
	}
	if got := src.Bits(8).Int64(); got != 0xEF {
		t.Errorf("Bits(8) = %#x, want 0xef", got)
	}
}

func TestSystemSource_PanicsOnShortRead(t *testing.T) {
	src := NewSystemSource(bytes.NewReader([]byte{0x01}))

	defer func() {
		if recover() == nil {
			t.Error("Bits() did not panic on exhausted reader")
		}
	}()
	src.Bits(64)
}

func TestSystemSource_DefaultReader(t *testing.T) {
	src := NewSystemSource(nil)
	limit := new(big.Int).Lsh(big.NewInt(1), 100)

	a, b := src.Bits(100), src.Bits(100)
	if a.Cmp(limit) >= 0 || b.Cmp(limit) >= 0 {
		t.Fatal("Bits(100) out of range")
	}
	if a.Cmp(b) == 0 {
		t.Error("two 100-bit draws are identical")
	}
}

func TestXOFSource_Deterministic(t *testing.T) {
	a := NewXOFSource([]byte("seed"))
	b := NewXOFSource([]byte("seed"))
	c := NewXOFSource([]byte("other seed"))

	x, y, z := a.Bits(256), b.Bits(256), c.Bits(256)
	if x.Cmp(y) != 0 {
		t.Error("equal seeds produced different output")
	}
	if x.Cmp(z) == 0 {
		t.Error("different seeds produced equal output")
	}
	if x.BitLen() > 256 {
		t.Errorf("Bits(256) has %d bits", x.BitLen())
	}
}

func TestLocked_ConcurrentDraws(t *testing.T) {
	p, q := DefaultBlumPrimes()
	bbs, err := NewSeededSource(7, p, q)
	if err != nil {
		t.Fatalf("NewSeededSource() error = %v", err)
	}
	locked := NewLocked(bbs)

	if NewLocked(locked) != locked {
		t.Error("NewLocked() re-wrapped a locked source")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				locked.Bits(16)
			}
		}()
	}
	wg.Wait()
}

func TestLocked_DoMatchesSequentialStream(t *testing.T) {
	p, q := DefaultBlumPrimes()
	a, _ := NewSeededSource(99, p, q)
	b, _ := NewSeededSource(99, p, q)

	var inside []*big.Int
	NewLocked(a).Do(func(src Source) {
		inside = append(inside, src.Bits(32), src.Bits(32))
	})

	if inside[0].Cmp(b.Bits(32)) != 0 || inside[1].Cmp(b.Bits(32)) != 0 {
		t.Error("Do() stream differs from direct stream")
	}
}
