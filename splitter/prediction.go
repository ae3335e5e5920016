package splitter

// nextPrediction splits blocks like ZPAQ (public domain).
//
// h is a 32 bit hash that depends on the last 32 bytes that were mispredicted by the order 1 model o1[].
// The variable size dependency window works because one constant is odd (correct prediction, no shift),
// and the other is even but not a multiple of 4 (missed prediction, 1 bit shift left).
// This is different from a normal Rabin filter, which uses a large fixed-sized dependency window
// and two multiply operations, one at the window entry and the inverse at the window exit.
func (s *Splitter) nextPrediction(b []byte) int {
	var (
		o1 [256]byte // order 1 context -> predicted byte
		c1 byte
		h  uint32
	)
	if len(b) > s.maxSize {
		b = b[:s.maxSize]
	}
	for i, c := range b {
		if c == o1[c1] {
			h = (h + uint32(c) + 1) * 314159265
		} else {
			h = (h + uint32(c) + 1) * 271828182
		}
		o1[c1] = c
		c1 = c
		if i+1 >= s.minSize && h < s.maxHash {
			return i + 1
		}
	}
	return len(b)
}
