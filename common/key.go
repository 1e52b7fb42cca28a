package common

import "bytes"

// KeyWidth is the fixed byte width of every key stored in a given index,
// selected once at index-creation time and never mixed within a tree.
type KeyWidth int

const (
	KeyWidth4  KeyWidth = 4
	KeyWidth8  KeyWidth = 8
	KeyWidth16 KeyWidth = 16
	KeyWidth32 KeyWidth = 32
	KeyWidth64 KeyWidth = 64
)

// IsValid reports whether w is one of the supported fixed widths.
func (w KeyWidth) IsValid() bool {
	switch w {
	case KeyWidth4, KeyWidth8, KeyWidth16, KeyWidth32, KeyWidth64:
		return true
	default:
		return false
	}
}

// Key is a fixed-width, big-endian ordered key. Lexicographic comparison of
// the underlying bytes gives correct ordering for unsigned integers built
// with KeyFromUint64, and a stable total order for any other fixed-width
// payload a caller chooses to place in it (e.g. a packed composite key).
type Key struct {
	width KeyWidth
	data  []byte
}

// NewKey builds a Key of the given width from data, which must have length
// exactly int(width). The bytes are copied.
func NewKey(width KeyWidth, data []byte) Key {
	if len(data) != int(width) {
		panic("common: key data length does not match key width")
	}
	buf := make([]byte, width)
	copy(buf, data)
	return Key{width: width, data: buf}
}

// KeyFromUint64 packs v into the low-order bytes of a width-byte big-endian
// key, zero-extending toward the most significant byte so ordering matches
// unsigned integer ordering.
func KeyFromUint64(width KeyWidth, v uint64) Key {
	buf := make([]byte, width)
	for i := 0; i < 8 && i < int(width); i++ {
		buf[int(width)-1-i] = byte(v >> (8 * i))
	}
	return Key{width: width, data: buf}
}

// DummyKey returns the all-zero key of the given width, used as the
// meaningless placeholder at index 0 of an internal node's key array.
func DummyKey(width KeyWidth) Key {
	return Key{width: width, data: make([]byte, width)}
}

// Width returns the key's byte width.
func (k Key) Width() KeyWidth { return k.width }

// Bytes returns the key's raw fixed-width encoding. Callers must not mutate
// the returned slice.
func (k Key) Bytes() []byte { return k.data }

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool {
	return bytes.Compare(k.data, other.data) < 0
}

// Equal reports whether k and other encode the same value.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k.data, other.data)
}

// LessEqual reports k <= other.
func (k Key) LessEqual(other Key) bool {
	return bytes.Compare(k.data, other.data) <= 0
}
