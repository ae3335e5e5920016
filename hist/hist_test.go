package hist

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type inputFn func() ([]byte, error)

var testfiles = []struct {
	name string
	fn   inputFn
}{
	{name: "text", fn: func() ([]byte, error) {
		return []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)), nil
	}},
	{name: "skewed", fn: func() ([]byte, error) { return skewed(1, 100000), nil }},
	{name: "skewed-small", fn: func() ([]byte, error) { return skewed(2, 300), nil }},
	{name: "two-symbols", fn: func() ([]byte, error) {
		return []byte(strings.Repeat("ab", 500) + strings.Repeat("a", 300)), nil
	}},
	{name: "sparse", fn: func() ([]byte, error) {
		b := make([]byte, 0, 3000)
		for i := 0; i < 1000; i++ {
			b = append(b, 0, 100, byte(i%3*127))
		}
		return b, nil
	}},
	{name: "abc", fn: func() ([]byte, error) {
		return []byte(strings.Repeat("a", 45) + strings.Repeat("b", 35) + strings.Repeat("c", 20)), nil
	}},
}

// skewed returns n bytes with a geometric-like symbol distribution.
func skewed(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	for i := range b {
		v := int(rng.ExpFloat64() * 12)
		if v > 255 {
			v = 255
		}
		b[i] = byte(v)
	}
	return b
}

func TestCounters(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	counters := map[string]CounterFunc{
		"unrolled": CountUnrolled,
		"blocked":  CountBlocked,
	}
	for _, n := range []int{0, 1, 3, 15, 16, 17, 31, 100, 4097} {
		b := make([]byte, n)
		rng.Read(b)
		var want Counts
		CountSimple(b, &want)
		if want.Total() != n {
			t.Fatalf("simple count total %d != %d", want.Total(), n)
		}
		for name, fn := range counters {
			var got Counts
			got[0] = 12345
			fn(b, &got)
			if !cmp.Equal(want, got) {
				t.Errorf("%s, len %d: %s", name, n, cmp.Diff(want, got))
			}
		}
	}
	for _, tt := range testfiles {
		b, _ := tt.fn()
		var want, got Counts
		CountSimple(b, &want)
		CountBlocked(b, &got)
		if !cmp.Equal(want, got) {
			t.Errorf("%s: %s", tt.name, cmp.Diff(want, got))
		}
	}
}

func TestCountsSummary(t *testing.T) {
	var c Counts
	CountSimple([]byte("aaaabbc"), &c)
	if got := c.MaxSymbol(); got != 'c' {
		t.Errorf("max symbol: want %d, got %d", 'c', got)
	}
	if got := c.MaxCount(); got != 4 {
		t.Errorf("max count: want 4, got %d", got)
	}
	if got := c.Distinct(); got != 3 {
		t.Errorf("distinct: want 3, got %d", got)
	}
}

func TestNormalizeABC(t *testing.T) {
	b := []byte(strings.Repeat("a", 45) + strings.Repeat("b", 35) + strings.Repeat("c", 20))
	var c Counts
	CountSimple(b, &c)
	if c['a'] != 45 || c['b'] != 35 || c['c'] != 20 {
		t.Fatalf("unexpected counts a:%d b:%d c:%d", c['a'], c['b'], c['c'])
	}
	norm, err := Normalize(&c, 7, len(b), 255)
	if err != nil {
		t.Fatal(err)
	}
	var want NormCounts
	want['a'], want['b'], want['c'] = 59, 44, 25
	if !cmp.Equal(want, norm) {
		t.Fatal(cmp.Diff(want, norm))
	}
	if norm.Sum() != 128 {
		t.Fatalf("sum %d != 128", norm.Sum())
	}

	norm, err = Normalize(&c, 8, len(b), c.MaxSymbol())
	if err != nil {
		t.Fatal(err)
	}
	if got := int(norm['a']) + int(norm['b']) + int(norm['c']); got != 256 {
		t.Fatalf("sum %d != 256", got)
	}
}

func TestNormalizeSum(t *testing.T) {
	for _, tt := range testfiles {
		b, _ := tt.fn()
		var c Counts
		CountSimple(b, &c)
		maxSym := c.MaxSymbol()
		for tl := uint8(MinTableLog); tl <= MaxTableLog; tl++ {
			t.Run(fmt.Sprintf("%s-%d", tt.name, tl), func(t *testing.T) {
				norm, err := Normalize(&c, tl, len(b), maxSym)
				if tl < MinTableLogFor(len(b), maxSym) {
					if !errors.Is(err, ErrTableLogTooSmall) {
						t.Fatalf("want ErrTableLogTooSmall, got %v", err)
					}
					return
				}
				if errors.Is(err, ErrNormalizationUnsupported) {
					t.Skip(err)
				}
				if err != nil {
					t.Fatal(err)
				}
				if got := norm.Sum(); got != 1<<tl {
					t.Fatalf("sum %d != %d", got, 1<<tl)
				}
				for i, v := range norm {
					if (c[i] == 0) != (v == 0) {
						t.Fatalf("symbol %d: count %d, normalized %d", i, c[i], v)
					}
				}
				d := Distribution{Norm: norm, MaxSymbol: maxSym, TableLog: tl}
				if err := d.Validate(); err != nil {
					t.Fatal(err)
				}
			})
		}
	}
}

type recorder struct {
	debug []string
}

func (r *recorder) Debugf(format string, args ...interface{}) {
	r.debug = append(r.debug, fmt.Sprintf(format, args...))
}
func (r *recorder) Infof(string, ...interface{})  {}
func (r *recorder) Errorf(string, ...interface{}) {}

func TestNormalizeSecondMethod(t *testing.T) {
	// 31 symbols at 1.5 slots round up to 2 each,
	// more than the largest symbol can give back.
	var c Counts
	for i := 0; i < 31; i++ {
		c[i] = 150
	}
	c[31] = 1750
	r := &recorder{}
	norm, err := Normalizer{Tracer: r}.Normalize(&c, 6, 6400, 31)
	if err != nil {
		t.Fatal(err)
	}
	if norm.Sum() != 64 {
		t.Fatalf("sum %d != 64", norm.Sum())
	}
	for i := 0; i < 31; i++ {
		if norm[i] != 1 {
			t.Fatalf("symbol %d: want 1, got %d", i, norm[i])
		}
	}
	if norm[31] != 33 {
		t.Fatalf("symbol 31: want 33, got %d", norm[31])
	}
	if len(r.debug) != 1 || !strings.Contains(r.debug[0], "second method") {
		t.Fatalf("unexpected trace: %q", r.debug)
	}
}

func TestNormalizeRejects(t *testing.T) {
	var c Counts
	c['x'] = 1000
	_, err := Normalize(&c, 8, 1000, 'x')
	if !errors.Is(err, ErrUseRLE) {
		t.Fatalf("want ErrUseRLE, got %v", err)
	}
	if !errors.Is(err, ErrIncompressible) {
		t.Fatal("ErrUseRLE should be ErrIncompressible")
	}

	c['y'] = 1000
	if _, err := Normalize(&c, MinTableLog-1, 2000, 'y'); !errors.Is(err, ErrTableLogTooSmall) {
		t.Fatalf("want ErrTableLogTooSmall, got %v", err)
	}
	if _, err := Normalize(&c, AbsoluteMaxTableLog+1, 2000, 'y'); !errors.Is(err, ErrTableLogTooLarge) {
		t.Fatalf("want ErrTableLogTooLarge, got %v", err)
	}
}

func TestOptimalTableLog(t *testing.T) {
	for _, tt := range []struct {
		max     uint8
		size    int
		maxSym  uint8
		want    uint8
		comment string
	}{
		{max: 11, size: 100, maxSym: 'c', want: 7, comment: "small input, raised to min"},
		{max: 11, size: 1 << 20, maxSym: 255, want: 11},
		{max: 12, size: 1 << 20, maxSym: 255, want: 12},
		{max: 15, size: 1 << 20, maxSym: 255, want: MaxTableLog, comment: "clamped"},
		{max: 0, size: 1 << 20, maxSym: 255, want: DefaultTableLog},
		{max: 11, size: 3, maxSym: 1, want: MinTableLog},
		{max: 11, size: 1000, maxSym: 255, want: 9, comment: "raised for symbol range"},
	} {
		if got := OptimalTableLog(tt.max, tt.size, tt.maxSym); got != tt.want {
			t.Errorf("OptimalTableLog(%d, %d, %d) = %d, want %d %s", tt.max, tt.size, tt.maxSym, got, tt.want, tt.comment)
		}
	}
}

func TestDistributionValidate(t *testing.T) {
	d := Distribution{TableLog: 5, MaxSymbol: 2}
	d.Norm[0], d.Norm[1], d.Norm[2] = 30, 1, -1
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	d.Norm[2] = 0
	if err := d.Validate(); !errors.Is(err, ErrIncorrectNormalizedDistribution) {
		t.Fatalf("want ErrIncorrectNormalizedDistribution, got %v", err)
	}
	d.Norm[2], d.Norm[3] = -1, 1
	d.Norm[0] = 29
	if err := d.Validate(); !errors.Is(err, ErrIncorrectNormalizedDistribution) {
		t.Fatalf("symbol above max: want ErrIncorrectNormalizedDistribution, got %v", err)
	}
}

func BenchmarkCount(b *testing.B) {
	in := skewed(0, 1<<16)
	for name, fn := range map[string]CounterFunc{
		"simple":   CountSimple,
		"unrolled": CountUnrolled,
		"blocked":  CountBlocked,
	} {
		b.Run(name, func(b *testing.B) {
			var c Counts
			b.ReportAllocs()
			b.SetBytes(int64(len(in)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				fn(in, &c)
			}
		})
	}
}
