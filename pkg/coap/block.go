package coap

const (
	// MinBlockSize is the smallest block size (SZX 0).
	MinBlockSize = 16
	// MaxBlockSize is the largest block size (SZX 6).
	MaxBlockSize = 1024
)

// Block is a decoded Block1/Block2 option.
type Block struct {
	Num  uint32
	More bool
	Size int
}

// ParseBlock decodes a block option value.
func ParseBlock(v uint32) Block {
	szx := v & 7
	if szx == 7 {
		szx = 6
	}
	return Block{Num: v >> 4, More: v&8 != 0, Size: MinBlockSize << szx}
}

// Value encodes the block option.
func (b Block) Value() uint32 {
	var szx uint32
	for size := MinBlockSize; size < b.Size && szx < 6; size <<= 1 {
		szx++
	}
	v := b.Num<<4 | szx
	if b.More {
		v |= 8
	}
	return v
}

// BlockSizeFor returns the largest block size not exceeding limit,
// never less than MinBlockSize.
func BlockSizeFor(limit int) int {
	size := MaxBlockSize
	for size > MinBlockSize && size > limit {
		size >>= 1
	}
	return size
}
