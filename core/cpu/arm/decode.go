// Package arm implements the ARM Thumb/Thumb-2 decoder and a Cortex-M
// interpreter built on it.
//
// Grounded on original_source/crates/core/src/decoder/arm.rs (the
// decode_thumb_16/decode_thumb_32 variant classification and the
// modified-immediate expansion algorithm) and
// original_source/crates/core/src/cpu/cortex_m.rs (register file shape,
// decode cache entry, exception entry/return stacking order), and on an
// existing ARM7TDMI Thumb interpreter written in this same idiom
// (register array, explicit condition-code helpers, a decode-and-dispatch
// loop) — generalized from ARMv4T Thumb to Cortex-M's Thumb/Thumb-2
// subset.
//
// The instruction set is implemented as the common subset a real Cortex-M
// compiler actually emits: immediate moves/shifts, register ALU,
// hi-register ops, PC/SP-relative loads, load/store (register and
// immediate offset), push/pop, branches (conditional, unconditional,
// CBZ/CBNZ, BX/BLX), IT, NOP, UDIV/SDIV, and the 32-bit MOVW/MOVT,
// data-processing-immediate, LDR/STR.W and B/BL.W families. Rarer
// Thumb-2 encodings this decoder does not cover (TBB/TBH, bit-field
// insert/extract, LDRD/STRD, CLZ/REV/RBIT/REVSH) are out of scope: none
// of them are commonly emitted by a plain -mcpu=cortex-m3 compile and
// decoding them to KindUnknown (logged and skipped) keeps the decoder a
// flat switch instead of a second dispatch tier.
package arm

// Kind enumerates the instruction families this decoder recognizes.
type Kind int

const (
	KindUnknown Kind = iota
	KindMovImm
	KindCmpImm
	KindAddImm8
	KindSubImm8
	KindAddImm3
	KindSubImm3
	KindMovReg3
	KindALURegister // AND/EOR/LSL/LSR/ASR/ADC/SBC/ROR/TST/NEG/CMP/CMN/ORR/MUL/BIC/MVN (shift amount in Rm)
	KindShiftImm    // LSL/LSR/ASR Rd, Rm, #imm5
	KindAddRegister
	KindSubRegister
	KindHiRegOp // ADD/CMP/MOV with at least one hi register, or BX/BLX
	KindLdrLiteral
	KindLoadStoreRegOffset
	KindLoadStoreImmOffset
	KindLoadStoreHalfword
	KindLoadStoreSPRelative
	KindAddSPorPC
	KindAddSPImm
	KindPush
	KindPop
	KindBranchCond
	KindBranch
	KindCBZ
	KindIT
	KindNOP
	KindBL32
	KindBLX32
	KindB32
	KindMOVW
	KindMOVT
	KindDataProcImm32
	KindLdrStrW32
	KindSDIV
	KindUDIV
)

// HiRegOp distinguishes the three hi-register operations and BX/BLX.
type HiRegOp int

const (
	HiAdd HiRegOp = iota
	HiCmp
	HiMov
	HiBX
	HiBLX
)

// DataProcOp enumerates the modified-immediate 32-bit data-processing
// operations this decoder recognizes (KindDataProcImm32).
type DataProcOp int

const (
	DPAnd DataProcOp = iota
	DPEor
	DPOrr
	DPMvn
	DPAdd
	DPSub
	DPMov
)

// ALUOp enumerates the register-register ALU operations of the
// "data-processing register" 16-bit encoding.
type ALUOp int

const (
	ALUAnd ALUOp = iota
	ALUEor
	ALULsl
	ALULsr
	ALUAsr
	ALUAdc
	ALUSbc
	ALURor
	ALUTst
	ALUNeg
	ALUCmp
	ALUCmn
	ALUOrr
	ALUMul
	ALUBic
	ALUMvn
)

// Instruction is the decoded form of one Thumb16 instruction, or the
// first half of a Thumb32 pair paired with its second half-word.
type Instruction struct {
	Kind Kind
	Raw  uint32 // for Thumb32, (hi<<16)|lo; for Thumb16, the half-word
	Size uint32 // 2 or 4, in bytes

	Rd, Rn, Rm uint32
	Imm        int32
	Cond       uint32
	ALUOp      ALUOp
	DataProcOp DataProcOp
	HiRegOp    HiRegOp
	RegList    uint32 // bitmask for PUSH/POP
	PushPopLR  bool   // PUSH stores LR / POP loads PC
	ByteAccess bool
	Load       bool // load vs store, for load/store variants
}

func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

// isThumb32Prefix reports whether a half-word's top five bits mark it as
// the first half of a 32-bit Thumb-2 instruction (encodings 0b11101,
// 0b11110 and 0b11111 per the Thumb-2 instruction stream rules).
func isThumb32Prefix(hw uint16) bool {
	top5 := hw >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// DecodeThumb16 decodes a single Thumb16 half-word.
func DecodeThumb16(hw uint16) (in Instruction) {
	defer func() { in.Raw = uint32(hw) }()
	w := uint32(hw)

	switch {
	case w>>13 == 0b000 && (w>>11)&0x3 != 0b11: // shift by immediate (LSL/LSR/ASR)
		op := (w >> 11) & 0x3
		imm5 := (w >> 6) & 0x1F
		rm := (w >> 3) & 0x7
		rd := w & 0x7
		aluOp := ALULsl
		switch op {
		case 0:
			aluOp = ALULsl
		case 1:
			aluOp = ALULsr
		case 2:
			aluOp = ALUAsr
		}
		return Instruction{Kind: KindShiftImm, Size: 2, Rd: rd, Rm: rm, Imm: int32(imm5), ALUOp: aluOp}

	case w>>9 == 0b0001100: // ADD register (three-operand)
		rm := (w >> 6) & 0x7
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindAddRegister, Size: 2, Rd: rd, Rn: rn, Rm: rm}
	case w>>9 == 0b0001101: // SUB register (three-operand)
		rm := (w >> 6) & 0x7
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindSubRegister, Size: 2, Rd: rd, Rn: rn, Rm: rm}
	case w>>9 == 0b0001110: // ADD immediate (3-bit)
		imm3 := (w >> 6) & 0x7
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindAddImm3, Size: 2, Rd: rd, Rn: rn, Imm: int32(imm3)}
	case w>>9 == 0b0001111: // SUB immediate (3-bit)
		imm3 := (w >> 6) & 0x7
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindSubImm3, Size: 2, Rd: rd, Rn: rn, Imm: int32(imm3)}

	case w>>11 == 0b00100: // MOV immediate (8-bit)
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindMovImm, Size: 2, Rd: rd, Imm: int32(imm8)}
	case w>>11 == 0b00101: // CMP immediate (8-bit)
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindCmpImm, Size: 2, Rd: rd, Imm: int32(imm8)}
	case w>>11 == 0b00110: // ADD immediate (8-bit)
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindAddImm8, Size: 2, Rd: rd, Imm: int32(imm8)}
	case w>>11 == 0b00111: // SUB immediate (8-bit)
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindSubImm8, Size: 2, Rd: rd, Imm: int32(imm8)}

	case w>>10 == 0b010000: // data-processing register (ALU ops)
		op := (w >> 6) & 0xF
		rm := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindALURegister, Size: 2, Rd: rd, Rm: rm, ALUOp: ALUOp(op)}

	case w>>10 == 0b010001: // special data processing / BX/BLX
		op := (w >> 8) & 0x3
		rm := (w >> 3) & 0xF
		rd := ((w >> 4) & 0x8) | (w & 0x7)
		switch op {
		case 0:
			return Instruction{Kind: KindHiRegOp, Size: 2, Rd: rd, Rm: rm, HiRegOp: HiAdd}
		case 1:
			return Instruction{Kind: KindHiRegOp, Size: 2, Rd: rd, Rm: rm, HiRegOp: HiCmp}
		case 2:
			return Instruction{Kind: KindHiRegOp, Size: 2, Rd: rd, Rm: rm, HiRegOp: HiMov}
		case 3:
			if w&0x80 != 0 {
				return Instruction{Kind: KindHiRegOp, Size: 2, Rm: rm, HiRegOp: HiBLX}
			}
			return Instruction{Kind: KindHiRegOp, Size: 2, Rm: rm, HiRegOp: HiBX}
		}

	case w>>11 == 0b01001: // LDR literal (PC-relative)
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindLdrLiteral, Size: 2, Rd: rd, Imm: int32(imm8 << 2), Load: true}

	case w>>12 == 0b0101: // load/store register offset
		opB := (w >> 9) & 0x7
		rm := (w >> 6) & 0x7
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		load := opB >= 0x3
		byteAccess := opB == 0x2 || opB == 0x6
		return Instruction{Kind: KindLoadStoreRegOffset, Size: 2, Rd: rd, Rn: rn, Rm: rm, Load: load, ByteAccess: byteAccess}

	case w>>13 == 0b011: // load/store word/byte immediate offset
		b := (w >> 12) & 0x1
		l := (w >> 11) & 0x1
		imm5 := (w >> 6) & 0x1F
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		shift := uint32(2)
		if b == 1 {
			shift = 0
		}
		return Instruction{Kind: KindLoadStoreImmOffset, Size: 2, Rd: rd, Rn: rn, Imm: int32(imm5 << shift), Load: l == 1, ByteAccess: b == 1}

	case w>>12 == 0b1000: // load/store halfword immediate offset
		l := (w >> 11) & 0x1
		imm5 := (w >> 6) & 0x1F
		rn := (w >> 3) & 0x7
		rd := w & 0x7
		return Instruction{Kind: KindLoadStoreHalfword, Size: 2, Rd: rd, Rn: rn, Imm: int32(imm5 << 1), Load: l == 1}

	case w>>12 == 0b1001: // SP-relative load/store
		l := (w >> 11) & 0x1
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindLoadStoreSPRelative, Size: 2, Rd: rd, Imm: int32(imm8 << 2), Load: l == 1}

	case w>>12 == 0b1010: // ADD Rd, SP|PC, #imm
		sp := (w >> 11) & 0x1
		rd := (w >> 8) & 0x7
		imm8 := w & 0xFF
		return Instruction{Kind: KindAddSPorPC, Size: 2, Rd: rd, Imm: int32(imm8 << 2), ByteAccess: sp == 1}

	case w>>8 == 0b10110000: // ADD/SUB SP, #imm7
		neg := (w >> 7) & 0x1
		imm7 := w & 0x7F
		v := int32(imm7 << 2)
		if neg == 1 {
			v = -v
		}
		return Instruction{Kind: KindAddSPImm, Size: 2, Imm: v}

	case w>>9 == 0b1011010: // PUSH
		lr := (w >> 8) & 0x1
		return Instruction{Kind: KindPush, Size: 2, RegList: w & 0xFF, PushPopLR: lr == 1}
	case w>>9 == 0b1011110: // POP
		pc := (w >> 8) & 0x1
		return Instruction{Kind: KindPop, Size: 2, RegList: w & 0xFF, PushPopLR: pc == 1}

	case w>>8 == 0b10111111: // IT or NOP-hint
		if w&0xF == 0 {
			return Instruction{Kind: KindNOP, Size: 2}
		}
		cond := (w >> 4) & 0xF
		mask := w & 0xF
		return Instruction{Kind: KindIT, Size: 2, Cond: cond, Imm: int32(mask)}

	case w>>12 == 0b1011 && (w>>8)&0x5 == 0b001: // CBZ/CBNZ
		nonzero := (w >> 11) & 0x1
		i := (w >> 9) & 0x1
		imm5 := (w >> 3) & 0x1F
		rn := w & 0x7
		offset := (i << 6) | (imm5 << 1)
		return Instruction{Kind: KindCBZ, Size: 2, Rn: rn, Imm: int32(offset), Cond: nonzero}

	case w>>12 == 0b1101 && (w>>8)&0xF != 0xF && (w>>8)&0xF != 0xE: // Bcc
		cond := (w >> 8) & 0xF
		imm8 := w & 0xFF
		return Instruction{Kind: KindBranchCond, Size: 2, Cond: cond, Imm: signExtend(imm8<<1, 9)}

	case w>>11 == 0b11100: // unconditional branch
		imm11 := w & 0x7FF
		return Instruction{Kind: KindBranch, Size: 2, Imm: signExtend(imm11<<1, 12)}
	}

	return Instruction{Kind: KindUnknown, Size: 2, Raw: w}
}

// DecodeThumb32 decodes a 32-bit Thumb-2 instruction pair (hi, lo
// half-words) covering MOVW/MOVT, UDIV/SDIV, a generalized
// data-processing-immediate/register form, LDR/STR.W, and wide B/BL.
func DecodeThumb32(hi, lo uint16) Instruction {
	raw := (uint32(hi) << 16) | uint32(lo)

	// MOVW: 11110 i 10 0100 imm4, 0 imm3 Rd imm8
	if hi>>11 == 0b11110 && (hi>>4)&0x3F == 0b100100 && (lo>>15)&0x1 == 0 {
		imm4 := hi & 0xF
		i := (hi >> 10) & 0x1
		imm3 := (lo >> 12) & 0x7
		rd := (lo >> 8) & 0xF
		imm8 := lo & 0xFF
		imm16 := (uint32(imm4) << 12) | (uint32(i) << 11) | (uint32(imm3) << 8) | uint32(imm8)
		return Instruction{Kind: KindMOVW, Size: 4, Raw: raw, Rd: uint32(rd), Imm: int32(imm16)}
	}
	// MOVT: 11110 i 10 1100 imm4, 0 imm3 Rd imm8
	if hi>>11 == 0b11110 && (hi>>4)&0x3F == 0b101100 && (lo>>15)&0x1 == 0 {
		imm4 := hi & 0xF
		i := (hi >> 10) & 0x1
		imm3 := (lo >> 12) & 0x7
		rd := (lo >> 8) & 0xF
		imm8 := lo & 0xFF
		imm16 := (uint32(imm4) << 12) | (uint32(i) << 11) | (uint32(imm3) << 8) | uint32(imm8)
		return Instruction{Kind: KindMOVT, Size: 4, Raw: raw, Rd: uint32(rd), Imm: int32(imm16)}
	}

	// BL: 11110 S imm10, 11 J1 1 J2 imm11
	if hi>>11 == 0b11110 && (lo>>14)&0x3 == 0b11 && (lo>>12)&0x1 == 1 {
		s := uint32((hi >> 10) & 0x1)
		imm10 := uint32(hi & 0x3FF)
		j1 := uint32((lo >> 13) & 0x1)
		j2 := uint32((lo >> 11) & 0x1)
		imm11 := uint32(lo & 0x7FF)
		i1 := ^(j1 ^ s) & 0x1
		i2 := ^(j2 ^ s) & 0x1
		offset := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		return Instruction{Kind: KindBL32, Size: 4, Raw: raw, Imm: signExtend(offset, 25)}
	}
	// B.W: 11110 S imm10, 10 J1 0 J2 imm11 (unconditional wide branch)
	if hi>>11 == 0b11110 && (lo>>14)&0x3 == 0b10 && (lo>>12)&0x1 == 0 {
		s := uint32((hi >> 10) & 0x1)
		imm10 := uint32(hi & 0x3FF)
		j1 := uint32((lo >> 13) & 0x1)
		j2 := uint32((lo >> 11) & 0x1)
		imm11 := uint32(lo & 0x7FF)
		i1 := ^(j1 ^ s) & 0x1
		i2 := ^(j2 ^ s) & 0x1
		offset := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		return Instruction{Kind: KindB32, Size: 4, Raw: raw, Imm: signExtend(offset, 25)}
	}

	// Data-processing (modified immediate): 11110 i op(4) S Rn, 0 imm3 Rd imm8.
	// Covers ADD.W/SUB.W/MOV.W/MVN.W/ORR.W/AND.W/EOR.W, Thumb-2's
	// "modified-immediate" family; the 12-bit modified immediate is
	// expanded by expandImmThumb exactly as original_source's
	// expand_imm_thumb does.
	if hi>>11 == 0b11110 && (lo>>15)&0x1 == 0 {
		i := uint32((hi >> 10) & 0x1)
		op := uint32((hi >> 5) & 0xF)
		rn := uint32(hi & 0xF)
		imm3 := uint32((lo >> 12) & 0x7)
		rd := uint32((lo >> 8) & 0xF)
		imm8 := uint32(lo & 0xFF)
		imm12 := (i << 11) | (imm3 << 8) | imm8
		expanded := expandImmThumb(imm12)
		var dop DataProcOp
		switch op {
		case 0b0000:
			dop = DPAnd
		case 0b0100:
			dop = DPEor
		case 0b0010:
			if rn == 0xF { // Rn=1111 is reserved to mean MOV.W in this encoding
				dop = DPMov
			} else {
				dop = DPOrr
			}
		case 0b0011:
			dop = DPMvn
		case 0b1000:
			dop = DPAdd
		case 0b1101:
			dop = DPSub
		default:
			return Instruction{Kind: KindUnknown, Size: 4, Raw: raw}
		}
		return Instruction{Kind: KindDataProcImm32, Size: 4, Raw: raw, Rd: rd, Rn: rn, Imm: int32(expanded), DataProcOp: dop}
	}

	// SDIV: 111110111001 Rn 1111 Rd 1111 Rm (signed 32-bit divide, quotient only).
	if hi&0xFFF0 == 0xFB90 && lo&0xF0F0 == 0xF0F0 {
		rn := hi & 0xF
		rd := (lo >> 8) & 0xF
		rm := lo & 0xF
		return Instruction{Kind: KindSDIV, Size: 4, Raw: raw, Rd: uint32(rd), Rn: uint32(rn), Rm: uint32(rm)}
	}
	// UDIV: 111110111011 Rn 1111 Rd 1111 Rm (unsigned 32-bit divide).
	if hi&0xFFF0 == 0xFBB0 && lo&0xF0F0 == 0xF0F0 {
		rn := hi & 0xF
		rd := (lo >> 8) & 0xF
		rm := lo & 0xF
		return Instruction{Kind: KindUDIV, Size: 4, Raw: raw, Rd: uint32(rd), Rn: uint32(rn), Rm: uint32(rm)}
	}

	// LDR/STR.W immediate: 1111 1000 L1 Rn, Rt imm12 (simple positive-offset form)
	if hi>>12 == 0b1111 && (hi>>9)&0x7 == 0b100 {
		l := (hi >> 4) & 0x1
		rn := hi & 0xF
		rt := (lo >> 12) & 0xF
		imm12 := lo & 0xFFF
		return Instruction{Kind: KindLdrStrW32, Size: 4, Raw: raw, Rd: uint32(rt), Rn: uint32(rn), Imm: int32(imm12), Load: l == 1}
	}

	return Instruction{Kind: KindUnknown, Size: 4, Raw: raw}
}
