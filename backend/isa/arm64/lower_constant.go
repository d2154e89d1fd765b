package arm64

import (
	"github.com/joelreymont/hoist/backend/regalloc"
)

// lowerConstantI64 materializes an integer constant into dst with the
// shortest MOVZ/MOVN/MOVK sequence. The instructions are inserted in
// reverse program order to match the backward block construction.
func (m *machine) lowerConstantI64(dst regalloc.Reg, v uint64, is64bit bool) {
	var sf uint64
	halfwords := 2
	if is64bit {
		sf = 1
		halfwords = 4
	} else {
		v &= 0xffffffff
	}

	rd := operandNR(dst)

	// Count the zero and all-ones halfwords to pick MOVZ or MOVN as the
	// seed.
	var zeros, ones int
	for i := 0; i < halfwords; i++ {
		switch uint16(v >> (16 * i)) {
		case 0:
			zeros++
		case 0xffff:
			ones++
		}
	}

	var seq []instruction
	if ones > zeros {
		// Seed with MOVN: every halfword starts at all-ones.
		inverted := ^v
		if !is64bit {
			inverted &= 0xffffffff
		}
		seeded := false
		for i := 0; i < halfwords; i++ {
			hw := uint16(v >> (16 * i))
			if hw == 0xffff {
				continue
			}
			if !seeded {
				seq = append(seq, instruction{kind: movN, rd: rd, u1: uint64(uint16(inverted >> (16 * i))), u2: uint64(i), u3: sf})
				seeded = true
			} else {
				seq = append(seq, instruction{kind: movK, rd: rd, rn: rd, u1: uint64(hw), u2: uint64(i), u3: sf})
			}
		}
		if !seeded {
			// All halfwords are ones: movn rd, #0.
			seq = append(seq, instruction{kind: movN, rd: rd, u1: 0, u2: 0, u3: sf})
		}
	} else {
		seeded := false
		for i := 0; i < halfwords; i++ {
			hw := uint16(v >> (16 * i))
			if hw == 0 {
				continue
			}
			if !seeded {
				seq = append(seq, instruction{kind: movZ, rd: rd, u1: uint64(hw), u2: uint64(i), u3: sf})
				seeded = true
			} else {
				seq = append(seq, instruction{kind: movK, rd: rd, rn: rd, u1: uint64(hw), u2: uint64(i), u3: sf})
			}
		}
		if !seeded {
			seq = append(seq, instruction{kind: movZ, rd: rd, u1: 0, u2: 0, u3: sf})
		}
	}

	for i := len(seq) - 1; i >= 0; i-- {
		m.insert(seq[i])
	}
}
