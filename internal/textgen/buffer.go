package textgen

// Units may write up to one pattern's worth of sentinel bytes past the end
// of the text, so every text buffer carries trailing padding.
const (
	PadFactor    = 2
	SafetyMargin = 256
)

// Buffer is a text of nominal length Len with padding behind it.
type Buffer struct {
	data []byte
	n    int
}

func PaddedSize(n, maxPatternLen int) int {
	return n + PadFactor*maxPatternLen + SafetyMargin
}

func NewBuffer(n, maxPatternLen int) Buffer {
	return Buffer{data: make([]byte, PaddedSize(n, maxPatternLen)), n: n}
}

// BufferFrom copies text into a freshly padded buffer.
func BufferFrom(text []byte, maxPatternLen int) Buffer {
	b := NewBuffer(len(text), maxPatternLen)
	copy(b.data, text)
	return b
}

// Bytes returns the whole allocation, padding included.
func (b Buffer) Bytes() []byte { return b.data }

// Text returns the nominal text.
func (b Buffer) Text() []byte { return b.data[:b.n] }

func (b Buffer) Len() int { return b.n }

// Padding is the number of bytes available past the nominal end.
func (b Buffer) Padding() int { return len(b.data) - b.n }

// Restore clears the padding, undoing sentinel writes of a previous unit.
func (b Buffer) Restore() {
	clear(b.data[b.n:])
}
