package textgen

import "math"

// Stats summarises the byte distribution of a text.
type Stats struct {
	AlphabetSize int
	MaxByte      byte
	Freq         [256]int
	Entropy      float64
}

// ComputeStats makes one pass over text. Entropy is in bits per byte.
func ComputeStats(text []byte) Stats {
	var s Stats
	for _, c := range text {
		s.Freq[c]++
	}
	n := float64(len(text))
	for c, f := range s.Freq {
		if f == 0 {
			continue
		}
		s.AlphabetSize++
		s.MaxByte = byte(c)
		p := float64(f) / n
		s.Entropy -= p * math.Log2(p)
	}
	if s.AlphabetSize <= 1 {
		s.Entropy = 0
	}
	return s
}
