package table

// Record packs, into one 8-byte little-endian word, every bit the
// builder can pin down about a single (state, inc) observation at a
// given pair of consecutive outputs:
//
//	bits  0..36 (37 bits)  HighState: state's bits 27..63, right-aligned
//	bits 37..58 (22 bits)  IncFragment: inc's bits 42..63, right-aligned
//	bits 59..63 ( 5 bits)  Meta: builder-defined flags
//
// This is a value type: the table reader hands out Records read
// directly from the memory-mapped file, and callers that need to keep
// one past the next lookup must copy it (a plain assignment suffices,
// since Record is a uint64 wrapper, not a pointer into the mapping).
type Record uint64

const (
	highStateBits = 37
	incFragBits   = 22
	metaBits      = 5

	highStateMask = (uint64(1) << highStateBits) - 1
	incFragMask   = (uint64(1) << incFragBits) - 1
	metaMask      = (uint64(1) << metaBits) - 1

	incFragShift = highStateBits
	metaShift    = highStateBits + incFragBits
)

// NewRecord packs a fragment of state's top 37 bits (state>>27) and a
// fragment of inc's top 22 bits (inc>>42) into one Record.
func NewRecord(highState uint64, incFragment uint64, meta uint8) Record {
	r := (highState & highStateMask)
	r |= (incFragment & incFragMask) << incFragShift
	r |= (uint64(meta) & metaMask) << metaShift
	return Record(r)
}

// HighState returns the packed state>>27 fragment (bits 27..63 of the
// original state, right-aligned).
func (r Record) HighState() uint64 {
	return uint64(r) & highStateMask
}

// IncFragment returns the packed inc>>42 fragment (bits 42..63 of the
// original increment, right-aligned).
func (r Record) IncFragment() uint64 {
	return (uint64(r) >> incFragShift) & incFragMask
}

// Meta returns the builder-defined metadata bits.
func (r Record) Meta() uint8 {
	return uint8((uint64(r) >> metaShift) & metaMask)
}

// Key derives the 17-bit bucket key from a rotation-hypothesis pair and
// a coarse slice of the pre-step xor-shifted word, matching spec.md
// §4.2's "bits of (o_k, o_{k+1}) that are cheapest to recover (the
// rotation amounts plus selected high bits of the xor-shifted words)":
//
//	bits 12..16 (5 bits)  r, the hypothesized rotation of the pre-step state
//	bits  7..11 (5 bits)  rNext, the hypothesized rotation of the post-step state
//	bits  0..6  (7 bits)  xSel, the top 7 bits of the pre-step xor-shifted word
//
// r and xSel are not independent hypotheses once a caller fixes r: given
// an observed output o and a rotation guess r, the xor-shifted word
// x = rotateLeft(o, r) is exact, so xSel is a derived quantity, not a
// second free variable — both the builder (which enumerates r and xSel
// directly) and the engine (which derives xSel from a real observation)
// compute it identically. rNext remains a genuine hypothesis, since the
// rotation of the post-step state cannot be derived from r or x alone.
func Key(r, rNext, xSel uint8) uint32 {
	a := uint32(r) & 0x1F
	b := uint32(rNext) & 0x1F
	c := uint32(xSel) & 0x7F
	return (a << 12) | (b << 7) | c
}
