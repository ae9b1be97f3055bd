package sig

// FixWild normalizes a raw byte pattern before it is hashed or stored.
// The reference implementation's wildcarding rule is opcode-driven: it
// inspects the decoded instruction stream at the pattern's position and
// blanks out bytes that vary across compiler/library versions (branch
// targets, displacement fields) while leaving opcode bytes intact.
// Reproducing that rule faithfully requires a full 8086 instruction
// decoder, which is out of scope here (§4.2 treats fix_wild_cards as an
// opaque, machine-code-specific dependency of SALM, not something this
// design respecifies). FixWild is therefore the identity transform: it
// returns a copy of pat unchanged. This still satisfies the one
// property the design asks of it — idempotence — and keeps the call
// site in pkg/libmatch shaped the way a real
// implementation would plug one in.
func FixWild(pat []byte) []byte {
	out := make([]byte, len(pat))
	copy(out, pat)
	return out
}
