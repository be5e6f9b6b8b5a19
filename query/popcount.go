package query

import "github.com/klauspost/cpuid/v2"

// Column j of a bitmatrix row lives at byte j/8, bit 7-(j%8) of that byte
// (bitmatrix.Matrix.Set/Get): column 0 is the most significant bit. The
// two expansion tables below both respect that ordering so a hit on bit
// position p of a row byte always lands on score slot base+p.

// byteExpand[v] holds, for each of the 8 bit positions of byte value v
// (MSB first), 1 if that bit is set and 0 otherwise. Adding byteExpand[v]
// into an 8-wide uint16 score slice is the vectorizable path: on hardware
// wide enough to add 8 lanes at once this is one instruction per byte.
var byteExpand [256][8]uint16

func init() {
	for v := 0; v < 256; v++ {
		for p := 0; p < 8; p++ {
			if byte(v)&(1<<(7-uint(p))) != 0 {
				byteExpand[v][p] = 1
			}
		}
	}
}

// nibbleHi/nibbleLo pack a 4-bit nibble's bit pattern into a uint64 of
// four 16-bit lanes (one per bit, MSB first), so a row byte is expanded
// into 8 score lanes with two table lookups — the scalar fallback for
// hardware without a useful wide-add instruction. addRowByteNibble then
// adds each of the 8 lanes to its score individually; the packed words
// are not added to the scores as two 64-bit adds.
var nibbleHi, nibbleLo [16]uint64

func init() {
	for n := 0; n < 16; n++ {
		var w uint64
		for lane := 0; lane < 4; lane++ {
			if n&(1<<(3-uint(lane))) != 0 {
				w |= uint64(1) << (16 * uint(lane))
			}
		}
		nibbleHi[n] = w
		nibbleLo[n] = w
	}
}

// useWideAdd is decided once at process start from the host's SIMD
// capability (§4.9 step 5: "256-entry table + SIMD add" vs "16-entry
// nibble table + two 64-bit adds").
var useWideAdd = cpuid.CPU.Supports(cpuid.AVX2, cpuid.SSE2)

// addRowByte adds the hits in row byte v (columns base..base+7) into
// scores. len(scores) must be >= base+8.
func addRowByte(scores []uint16, base int, v byte) {
	if useWideAdd {
		addRowByteWide(scores, base, v)
		return
	}
	addRowByteNibble(scores, base, v)
}

func addRowByteWide(scores []uint16, base int, v byte) {
	lanes := &byteExpand[v]
	s := scores[base : base+8 : base+8]
	for i := 0; i < 8; i++ {
		s[i] += lanes[i]
	}
}

func addRowByteNibble(scores []uint16, base int, v byte) {
	hi := nibbleHi[v>>4]
	lo := nibbleLo[v&0xf]
	s := scores[base : base+8 : base+8]
	for lane := 0; lane < 4; lane++ {
		s[lane] += uint16(hi >> (16 * uint(lane)))
		s[4+lane] += uint16(lo >> (16 * uint(lane)))
	}
}

// addRow ANDs together the h rows in rows (each rowBytes long) and adds
// the resulting per-column hits into scores[:numColumns]. rows must all
// have the same length; numColumns may be less than 8*rowBytes for the
// last, partially-filled byte of a block.
func addRow(scores []uint16, rows [][]byte, numColumns int) {
	if len(rows) == 0 {
		return
	}
	rowBytes := len(rows[0])
	var acc byte
	for bi := 0; bi < rowBytes; bi++ {
		acc = rows[0][bi]
		for ri := 1; ri < len(rows) && acc != 0; ri++ {
			acc &= rows[ri][bi]
		}
		if acc == 0 {
			continue
		}
		base := bi * 8
		width := 8
		if base+width > numColumns {
			width = numColumns - base
			if width <= 0 {
				break
			}
		}
		if width == 8 {
			addRowByte(scores, base, acc)
			continue
		}
		for p := 0; p < width; p++ {
			if acc&(1<<(7-uint(p))) != 0 {
				scores[base+p]++
			}
		}
	}
}
