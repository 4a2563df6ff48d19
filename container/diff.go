package container

// DiffOp is the compact copy/literal grammar SNIP_DIFF snips carry in
// their payload (spec.md §4.2): a sequence of (copy length, literal
// bytes) pairs applied against another context's last reconstructed
// value. It exists in this package rather than zcontext because it is
// purely a reconstruction-time detail of one opcode, not part of the
// snip wire grammar itself.
//
// Each pair is: copyLen varint, litLen varint, then litLen literal
// bytes. The grammar is position-aligned: a literal replaces the
// same-length span of base at the current cursor, so both copies and
// literals advance it. An encoder may omit a trailing pure-copy pair;
// anything left of base after the last pair is copied automatically,
// the same "copy the remainder" shortcut a unified diff takes for its
// final hunk.
type DiffOp struct {
	CopyLen int
	Literal []byte
}

// EncodeDiffOps serializes ops into the wire form MakeDiff embeds in a
// snip.
func EncodeDiffOps(ops []DiffOp) []byte {
	var buf []byte
	for _, op := range ops {
		buf = appendDiffUvarint(buf, uint64(op.CopyLen))
		buf = appendDiffUvarint(buf, uint64(len(op.Literal)))
		buf = append(buf, op.Literal...)
	}
	return buf
}

// DecodeDiffOps parses the wire form EncodeDiffOps produced.
func DecodeDiffOps(buf []byte) []DiffOp {
	var ops []DiffOp
	for len(buf) > 0 {
		copyLen, n := readDiffUvarint(buf)
		if n == 0 {
			break
		}
		buf = buf[n:]
		litLen, n := readDiffUvarint(buf)
		if n == 0 {
			break
		}
		buf = buf[n:]
		lit := buf[:litLen]
		buf = buf[litLen:]
		ops = append(ops, DiffOp{CopyLen: int(copyLen), Literal: lit})
	}
	return ops
}

// ApplyDiff reconstructs text by replaying ops against base: copy
// CopyLen bytes from base at the current cursor, then append Literal,
// advancing the cursor past both the copied span and the span the
// literal replaces. Any of base left after the last op is copied
// verbatim, so a diff that only changes a prefix need not re-list the
// unchanged suffix.
func ApplyDiff(base []byte, opsWire []byte) []byte {
	ops := DecodeDiffOps(opsWire)
	var out []byte
	pos := 0
	for _, op := range ops {
		end := pos + op.CopyLen
		if end > len(base) {
			end = len(base)
		}
		out = append(out, base[pos:end]...)
		pos = end
		out = append(out, op.Literal...)
		pos += len(op.Literal)
		if pos > len(base) {
			pos = len(base)
		}
	}
	if pos < len(base) {
		out = append(out, base[pos:]...)
	}
	return out
}

func appendDiffUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readDiffUvarint(buf []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range buf {
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}
