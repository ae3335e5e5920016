package splitter

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

// Returns a deterministic buffer of size n
func getBufferSize(n int) []byte {
	rng := rand.New(rand.NewSource(0))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(255))
	}
	return b
}

// withDuplicates returns random data where blocks 10 to 59 repeat the first 10 blocks.
func withDuplicates(total, size int) []byte {
	b := getBufferSize(total)
	for i := 0; i < 50; i++ {
		src := b[(i%10)*size : (i%10)*size+size]
		dst := b[(10+i)*size : (i+10)*size+size]
		copy(dst, src)
	}
	return b
}

func TestFragments(t *testing.T) {
	const size = 64 << 10
	b := withDuplicates(10<<20, size)
	for _, mode := range []Mode{ModeFixed, ModePrediction, ModeEntropy} {
		t.Run(mode.String(), func(t *testing.T) {
			s, err := New(mode, size)
			if err != nil {
				t.Fatal(err)
			}
			var (
				n      int
				blocks int
				short  int
			)
			s.Split(b, func(f []byte) {
				if !bytes.Equal(b[n:n+len(f)], f) {
					t.Fatalf("output mismatch at offset %d", n)
				}
				if len(f) == 0 || len(f) > size {
					t.Fatalf("block of %d bytes at offset %d", len(f), n)
				}
				if n+len(f) < len(b) && len(f) < s.minSize {
					t.Fatalf("block of %d bytes < %d at offset %d", len(f), s.minSize, n)
				}
				if len(f) < size {
					short++
				}
				n += len(f)
				blocks++
			})
			t.Logf("%d blocks, %d shorter than maximum", blocks, short)
			if n != len(b) {
				t.Fatalf("got %d bytes, want %d", n, len(b))
			}
			if mode == ModeFixed && blocks != len(b)/size {
				t.Fatalf("got %d blocks, want %d", blocks, len(b)/size)
			}
			if mode != ModeFixed && short == 0 {
				t.Fatal("no content defined boundaries")
			}
		})
	}
}

func TestDuplicatesAlign(t *testing.T) {
	// Blocks cut inside the first copy are cut at the same offsets in the repeats.
	const size = 64 << 10
	b := withDuplicates(10<<20, size)
	s, err := New(ModePrediction, size)
	if err != nil {
		t.Fatal(err)
	}
	cuts := map[int]bool{}
	n := 0
	s.Split(b, func(f []byte) {
		n += len(f)
		cuts[n] = true
	})
	matched := 0
	for off := range cuts {
		if off < 10*size && cuts[off+10*size] {
			matched++
		}
	}
	if matched == 0 {
		t.Fatal("no boundaries repeated in duplicated data")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		mode    Mode
		maxSize int
		err     error
	}{
		{mode: ModeFixed, maxSize: 1},
		{mode: ModeFixed, maxSize: 0, err: errAny},
		{mode: ModePrediction, maxSize: MinBlockSize - 1, err: ErrSizeTooSmall},
		{mode: ModeEntropy, maxSize: MinBlockSize - 1, err: ErrSizeTooSmall},
		{mode: ModeEntropy, maxSize: MinBlockSize},
		{mode: Mode(7), maxSize: 1 << 10, err: errAny},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v-%d", test.mode, test.maxSize), func(t *testing.T) {
			s, err := New(test.mode, test.maxSize)
			switch {
			case test.err == nil && err != nil:
				t.Fatal(err)
			case test.err == nil:
				if s.Mode() != test.mode || s.MaxSize() != test.maxSize {
					t.Fatalf("got %v/%d", s.Mode(), s.MaxSize())
				}
			case err == nil:
				t.Fatal("no error")
			case test.err != errAny && !errors.Is(err, test.err):
				t.Fatalf("got error %v, want %v", err, test.err)
			}
		})
	}
}

var errAny = errors.New("any error")

func TestNextShort(t *testing.T) {
	for _, mode := range []Mode{ModeFixed, ModePrediction, ModeEntropy} {
		s, err := New(mode, 4096)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.Next(nil); got != 0 {
			t.Errorf("%v: empty input: got %d", mode, got)
		}
		if got := s.Next(make([]byte, 10)); got != 10 {
			t.Errorf("%v: short input: got %d, want 10", mode, got)
		}
		if got := s.Next(make([]byte, 10000)); got < 1 || got > 4096 {
			t.Errorf("%v: long input: got %d", mode, got)
		}
	}
}

func benchmarkSplit(b *testing.B, mode Mode, total, size int) {
	in := withDuplicates(total, size)
	s, err := New(mode, size)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(total))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Split(in, func([]byte) {})
	}
}

// Maximum block size:64k
func BenchmarkDynamicFragments64K(b *testing.B) {
	benchmarkSplit(b, ModePrediction, 10<<20, 64<<10)
}

// Maximum block size:64k
func BenchmarkDynamicEntropyFragments64K(b *testing.B) {
	benchmarkSplit(b, ModeEntropy, 10<<20, 64<<10)
}

// Maximum block size:4k
func BenchmarkDynamicEntropyFragments4K(b *testing.B) {
	benchmarkSplit(b, ModeEntropy, 10<<20, 4<<10)
}
