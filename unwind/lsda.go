package unwind

// emitLSDA renders the language-specific data area: a call-site table
// mapping each try-call instruction to its landing pad. The landing-pad
// base is the function start and no type table is carried, so the header
// omits both.
//
// No conditional branch follows a try-call in the emitted code: the runtime
// unwinder transfers control to the landing pad by consulting this table.
func emitLSDA(out []byte, fi *FrameInfo) []byte {
	out = append(out, dwEhPeOmit) // landing-pad start: function start
	out = append(out, dwEhPeOmit) // no type table
	out = append(out, dwEhPeUleb128)

	var table []byte
	for _, cs := range fi.TryCalls {
		table = appendUleb128(table, uint64(cs.Offset))
		table = appendUleb128(table, uint64(cs.Length))
		table = appendUleb128(table, uint64(cs.LandingPad))
		table = appendUleb128(table, 0) // action: cleanup
	}
	out = appendUleb128(out, uint64(len(table)))
	return append(out, table...)
}

// ParseLSDACallSites decodes the call-site table of an LSDA produced by
// Emit, for tests and runtime consumers.
func ParseLSDACallSites(lsda []byte) []TryCallSite {
	if len(lsda) < 3 {
		return nil
	}
	pos := 3
	tableLen, n := readUleb128(lsda[pos:])
	pos += n
	end := pos + int(tableLen)

	var sites []TryCallSite
	for pos < end {
		var cs TryCallSite
		v, n := readUleb128(lsda[pos:])
		pos += n
		cs.Offset = uint32(v)
		v, n = readUleb128(lsda[pos:])
		pos += n
		cs.Length = uint32(v)
		v, n = readUleb128(lsda[pos:])
		pos += n
		cs.LandingPad = uint32(v)
		_, n = readUleb128(lsda[pos:])
		pos += n
		sites = append(sites, cs)
	}
	return sites
}

func readUleb128(b []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, c := range b {
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return v, len(b)
}
