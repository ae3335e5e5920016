package hist

import (
	"math"

	"github.com/ansflex/ansflex/internal/le"
)

// CounterFunc fills c with the occurrences of each byte in in.
// c is overwritten. Every implementation must return identical counts.
type CounterFunc func(in []byte, c *Counts)

// CountSimple counts one byte at a time.
func CountSimple(in []byte, c *Counts) {
	*c = Counts{}
	if uint64(len(in)) > math.MaxUint32 {
		countSaturating(in, c)
		return
	}
	for _, v := range in {
		c[v]++
	}
}

// CountUnrolled counts into four tables, so consecutive equal bytes
// do not update the same counter back to back.
func CountUnrolled(in []byte, c *Counts) {
	*c = Counts{}
	if uint64(len(in)) > math.MaxUint32 {
		countSaturating(in, c)
		return
	}
	var tables [4]Counts
	for len(in) >= 4 {
		tables[0][in[0]]++
		tables[1][in[1]]++
		tables[2][in[2]]++
		tables[3][in[3]]++
		in = in[4:]
	}
	for _, v := range in {
		tables[0][v]++
	}
	for i := range c {
		c[i] = tables[0][i] + tables[1][i] + tables[2][i] + tables[3][i]
	}
}

// CountBlocked loads 16 bytes at a time as four 32 bit words
// and counts each byte lane into its own table.
func CountBlocked(in []byte, c *Counts) {
	*c = Counts{}
	if uint64(len(in)) > math.MaxUint32 {
		countSaturating(in, c)
		return
	}
	var tables [4]Counts
	i := 0
	for ; i+16 <= len(in); i += 16 {
		for j := 0; j < 16; j += 4 {
			v := le.Load32(in, i+j)
			tables[0][uint8(v)]++
			tables[1][uint8(v>>8)]++
			tables[2][uint8(v>>16)]++
			tables[3][uint8(v>>24)]++
		}
	}
	for _, v := range in[i:] {
		tables[0][v]++
	}
	for i := range c {
		c[i] = tables[0][i] + tables[1][i] + tables[2][i] + tables[3][i]
	}
}

// countSaturating counts inputs that could overflow a counter.
func countSaturating(in []byte, c *Counts) {
	for _, v := range in {
		if c[v] != math.MaxUint32 {
			c[v]++
		}
	}
}
