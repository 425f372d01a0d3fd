// Package riscv implements the RV32I+Zicsr decoder and interpreter.
// Grounded on original_source/crates/core/src/decoder/riscv.rs
// (opcode/funct3/funct7 dispatch table and immediate sign-extension) and
// original_source/crates/core/src/cpu/riscv.rs (mtime/mtimecmp/mip/mie
// trap semantics), expressed in the style of a flat instruction
// dispatch table (compare hardware/cpu/definitions' table-driven
// decoding), generalized here to a switch over opcode bits since Go
// lacks a convenient fixed-width table literal for a variable-width ISA.
package riscv

// Kind enumerates every RV32I+Zicsr instruction family this decoder
// produces.
type Kind int

const (
	KindInvalid Kind = iota
	KindLUI
	KindAUIPC
	KindJAL
	KindJALR
	KindBranch
	KindLoad
	KindStore
	KindOpImm
	KindOp
	KindFence
	KindECALL
	KindEBREAK
	KindMRET
	KindCSR
)

// BranchOp enumerates the six branch comparison kinds.
type BranchOp int

const (
	BEQ BranchOp = iota
	BNE
	BLT
	BGE
	BLTU
	BGEU
)

// LoadOp enumerates the five load widths/signedness combinations.
type LoadOp int

const (
	LB LoadOp = iota
	LH
	LW
	LBU
	LHU
)

// StoreOp enumerates the three store widths.
type StoreOp int

const (
	SB StoreOp = iota
	SH
	SW
)

// OpImmOp enumerates the nine immediate ALU operations, with SRAI
// distinguished from SRLI by funct7 bit 5 of the shift-amount encoding.
type OpImmOp int

const (
	ADDI OpImmOp = iota
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI
)

// OpOp enumerates the ten register-register ALU operations.
type OpOp int

const (
	ADD OpOp = iota
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND
)

// CSROp enumerates the six Zicsr instruction variants.
type CSROp int

const (
	CSRRW CSROp = iota
	CSRRS
	CSRRC
	CSRRWI
	CSRRSI
	CSRRCI
)

// Instruction is the decoded form of one 32-bit RV32I+Zicsr word.
type Instruction struct {
	Kind Kind
	Raw  uint32

	RD, RS1, RS2 uint32
	Imm          int32

	BranchOp BranchOp
	LoadOp   LoadOp
	StoreOp  StoreOp
	OpImmOp  OpImmOp
	OpOp     OpOp
	CSROp    CSROp
	CSRAddr  uint32
}

func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

// Decode decodes one 32-bit instruction word via opcode/funct3/funct7
// dispatch. An unrecognized opcode/funct3/funct7 combination yields
// KindInvalid, which the interpreter reports as a DecodeError — RISC-V,
// unlike ARM, refuses to decode unknown instructions.
func Decode(word uint32) Instruction {
	opcode := word & 0x7F
	rd := (word >> 7) & 0x1F
	funct3 := (word >> 12) & 0x7
	rs1 := (word >> 15) & 0x1F
	rs2 := (word >> 20) & 0x1F
	funct7 := (word >> 25) & 0x7F

	in := Instruction{Raw: word, RD: rd, RS1: rs1, RS2: rs2}

	switch opcode {
	case 0x37: // LUI
		in.Kind = KindLUI
		in.Imm = int32(word & 0xFFFFF000)
		return in
	case 0x17: // AUIPC
		in.Kind = KindAUIPC
		in.Imm = int32(word & 0xFFFFF000)
		return in
	case 0x6F: // JAL
		in.Kind = KindJAL
		imm20 := (word >> 31) & 0x1
		imm10_1 := (word >> 21) & 0x3FF
		imm11 := (word >> 20) & 0x1
		imm19_12 := (word >> 12) & 0xFF
		raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
		in.Imm = signExtend(raw, 21)
		return in
	case 0x67: // JALR
		if funct3 != 0 {
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		in.Kind = KindJALR
		in.Imm = signExtend(word>>20, 12)
		return in
	case 0x63: // branches
		in.Kind = KindBranch
		switch funct3 {
		case 0x0:
			in.BranchOp = BEQ
		case 0x1:
			in.BranchOp = BNE
		case 0x4:
			in.BranchOp = BLT
		case 0x5:
			in.BranchOp = BGE
		case 0x6:
			in.BranchOp = BLTU
		case 0x7:
			in.BranchOp = BGEU
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		imm12 := (word >> 31) & 0x1
		imm10_5 := (word >> 25) & 0x3F
		imm4_1 := (word >> 8) & 0xF
		imm11 := (word >> 7) & 0x1
		raw := (imm12 << 12) | (imm11 << 11) | (imm10_5 << 5) | (imm4_1 << 1)
		in.Imm = signExtend(raw, 13)
		return in
	case 0x03: // loads
		in.Kind = KindLoad
		switch funct3 {
		case 0x0:
			in.LoadOp = LB
		case 0x1:
			in.LoadOp = LH
		case 0x2:
			in.LoadOp = LW
		case 0x4:
			in.LoadOp = LBU
		case 0x5:
			in.LoadOp = LHU
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		in.Imm = signExtend(word>>20, 12)
		return in
	case 0x23: // stores
		in.Kind = KindStore
		switch funct3 {
		case 0x0:
			in.StoreOp = SB
		case 0x1:
			in.StoreOp = SH
		case 0x2:
			in.StoreOp = SW
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		imm11_5 := (word >> 25) & 0x7F
		imm4_0 := (word >> 7) & 0x1F
		raw := (imm11_5 << 5) | imm4_0
		in.Imm = signExtend(raw, 12)
		return in
	case 0x13: // OP-IMM
		in.Kind = KindOpImm
		shamt := rs2
		switch funct3 {
		case 0x0:
			in.OpImmOp = ADDI
			in.Imm = signExtend(word>>20, 12)
		case 0x2:
			in.OpImmOp = SLTI
			in.Imm = signExtend(word>>20, 12)
		case 0x3:
			in.OpImmOp = SLTIU
			in.Imm = signExtend(word>>20, 12)
		case 0x4:
			in.OpImmOp = XORI
			in.Imm = signExtend(word>>20, 12)
		case 0x6:
			in.OpImmOp = ORI
			in.Imm = signExtend(word>>20, 12)
		case 0x7:
			in.OpImmOp = ANDI
			in.Imm = signExtend(word>>20, 12)
		case 0x1:
			if funct7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: word}
			}
			in.OpImmOp = SLLI
			in.Imm = int32(shamt)
		case 0x5:
			if funct7 == 0x20 {
				in.OpImmOp = SRAI
			} else if funct7 == 0 {
				in.OpImmOp = SRLI
			} else {
				return Instruction{Kind: KindInvalid, Raw: word}
			}
			in.Imm = int32(shamt)
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		return in
	case 0x33: // OP
		in.Kind = KindOp
		switch {
		case funct3 == 0x0 && funct7 == 0x00:
			in.OpOp = ADD
		case funct3 == 0x0 && funct7 == 0x20:
			in.OpOp = SUB
		case funct3 == 0x1 && funct7 == 0x00:
			in.OpOp = SLL
		case funct3 == 0x2 && funct7 == 0x00:
			in.OpOp = SLT
		case funct3 == 0x3 && funct7 == 0x00:
			in.OpOp = SLTU
		case funct3 == 0x4 && funct7 == 0x00:
			in.OpOp = XOR
		case funct3 == 0x5 && funct7 == 0x00:
			in.OpOp = SRL
		case funct3 == 0x5 && funct7 == 0x20:
			in.OpOp = SRA
		case funct3 == 0x6 && funct7 == 0x00:
			in.OpOp = OR
		case funct3 == 0x7 && funct7 == 0x00:
			in.OpOp = AND
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
		return in
	case 0x0F: // FENCE
		in.Kind = KindFence
		return in
	case 0x73: // SYSTEM
		imm12 := word >> 20
		switch funct3 {
		case 0x0:
			switch {
			case imm12 == 0 && rs1 == 0 && rd == 0:
				in.Kind = KindECALL
			case imm12 == 1 && rs1 == 0 && rd == 0:
				in.Kind = KindEBREAK
			case imm12 == 0x302 && rs1 == 0 && rd == 0:
				in.Kind = KindMRET
			default:
				return Instruction{Kind: KindInvalid, Raw: word}
			}
			return in
		case 0x1:
			in.Kind = KindCSR
			in.CSROp = CSRRW
			in.CSRAddr = imm12
			return in
		case 0x2:
			in.Kind = KindCSR
			in.CSROp = CSRRS
			in.CSRAddr = imm12
			return in
		case 0x3:
			in.Kind = KindCSR
			in.CSROp = CSRRC
			in.CSRAddr = imm12
			return in
		case 0x5:
			in.Kind = KindCSR
			in.CSROp = CSRRWI
			in.CSRAddr = imm12
			return in
		case 0x6:
			in.Kind = KindCSR
			in.CSROp = CSRRSI
			in.CSRAddr = imm12
			return in
		case 0x7:
			in.Kind = KindCSR
			in.CSROp = CSRRCI
			in.CSRAddr = imm12
			return in
		default:
			return Instruction{Kind: KindInvalid, Raw: word}
		}
	default:
		return Instruction{Kind: KindInvalid, Raw: word}
	}
}
