package splitter

// nextEntropy splits blocks based on the byte distribution.
// The histogram of the first minSize bytes of the block selects which
// bytes count as predicted by the hash below.
func (s *Splitter) nextEntropy(b []byte) int {
	var hist [256]uint16
	for _, v := range b[:s.minSize] {
		hist[v]++
	}
	avgHist := uint16(s.minSize / 255)
	if len(b) > s.maxSize {
		b = b[:s.maxSize]
	}

	var h uint32
	for i := s.minSize; i < len(b); i++ {
		c := b[i]
		if hist[c] >= avgHist {
			h = (h + uint32(c) + 1) * 314159265
		} else {
			h = (h + uint32(c) + 1) * 271828182
		}
		if h < s.maxHash {
			return i + 1
		}
	}
	return len(b)
}
