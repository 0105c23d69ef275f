package funcscope

import (
	"debug/elf"
	"fmt"
	"io"

	"fortio.org/safecast"
	"go.uber.org/zap"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// Arch is a supported instruction set architecture.
type Arch string

// Supported architectures.
const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

// DecodingTerminators classifies block terminators by decoding the machine
// code of each block. Blocks whose bytes are not covered by the code image,
// or cannot be decoded, are handed to the fallback oracle.
type DecodingTerminators struct {
	code     []byte
	baseAddr uint64
	arch     Arch
	fallback TerminatorOracle
}

// NewDecodingTerminators returns an oracle over code loaded at baseAddr.
// fallback may be nil, in which case blocks that cannot be decoded are
// classified as TerminatorOther.
func NewDecodingTerminators(code []byte, baseAddr uint64, arch Arch, fallback TerminatorOracle) (*DecodingTerminators, error) {
	switch arch {
	case ArchAMD64, ArchARM64:
	default:
		return nil, fmt.Errorf("unsupported architecture: %s", arch)
	}
	return &DecodingTerminators{
		code:     code,
		baseAddr: baseAddr,
		arch:     arch,
		fallback: fallback,
	}, nil
}

// NewTerminatorsFromELF parses an ELF binary from the given reader and
// returns an oracle over its .text section. The architecture is inferred
// from the ELF header.
func NewTerminatorsFromELF(r io.ReaderAt, fallback TerminatorOracle) (*DecodingTerminators, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer f.Close()

	textSec := f.Section(".text")
	if textSec == nil {
		return nil, fmt.Errorf("no .text section found")
	}

	code, err := textSec.Data()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read .text section: %w", err)
	}

	switch f.Machine {
	case elf.EM_X86_64:
		return NewDecodingTerminators(code, textSec.Addr, ArchAMD64, fallback)
	case elf.EM_AARCH64:
		return NewDecodingTerminators(code, textSec.Addr, ArchARM64, fallback)
	default:
		return nil, fmt.Errorf("unsupported ELF machine: %s", f.Machine)
	}
}

// Arch returns the architecture the oracle decodes.
func (d *DecodingTerminators) Arch() Arch {
	return d.arch
}

// ClassifyTerminator decodes the last instruction of b.
func (d *DecodingTerminators) ClassifyTerminator(b *Block) Terminator {
	code, ok := d.blockBytes(b)
	if ok {
		var term Terminator
		switch d.arch {
		case ArchAMD64:
			term, ok = classifyAMD64(code)
		case ArchARM64:
			term, ok = classifyARM64(code)
		}
		if ok {
			return term
		}
		Logger().Debug("cannot decode block terminator",
			zap.Stringer("block", b),
			zap.String("arch", string(d.arch)))
	}
	if d.fallback != nil {
		return d.fallback.ClassifyTerminator(b)
	}
	return TerminatorOther
}

// blockBytes returns the slice of the code image covered by b.
func (d *DecodingTerminators) blockBytes(b *Block) ([]byte, bool) {
	if b == nil || b.Size == 0 || b.Address() < d.baseAddr {
		return nil, false
	}
	start, err := safecast.Conv[int](b.Address() - d.baseAddr)
	if err != nil {
		return nil, false
	}
	size, err := safecast.Conv[int](b.Size)
	if err != nil {
		return nil, false
	}
	if start > len(d.code) || size > len(d.code)-start {
		return nil, false
	}
	return d.code[start : start+size], true
}

// classifyAMD64 decodes code linearly and classifies its final instruction.
// The boolean is false when the final bytes do not decode.
func classifyAMD64(code []byte) (Terminator, bool) {
	var last x86asm.Inst
	decoded := false

	offset := 0
	for offset < len(code) {
		// ENDBR64 (f3 0f 1e fa) and ENDBR32 (f3 0f 1e fb) are not known to
		// x86asm and never terminate a block.
		if offset+4 <= len(code) &&
			code[offset] == 0xf3 && code[offset+1] == 0x0f &&
			code[offset+2] == 0x1e && (code[offset+3] == 0xfa || code[offset+3] == 0xfb) {
			offset += 4
			decoded = false
			continue
		}

		inst, err := x86asm.Decode(code[offset:], 64)
		// Unknown and truncated encodings may decode to the zero Op.
		if err != nil || inst.Op == 0 {
			offset++
			decoded = false
			continue
		}
		last = inst
		decoded = true
		offset += inst.Len
	}

	if !decoded {
		return TerminatorOther, false
	}
	return terminatorAMD64(last), true
}

func terminatorAMD64(inst x86asm.Inst) Terminator {
	switch inst.Op {
	case x86asm.RET, x86asm.LRET,
		x86asm.IRET, x86asm.IRETD, x86asm.IRETQ,
		x86asm.SYSRET, x86asm.SYSEXIT:
		return TerminatorReturn
	case x86asm.JMP:
		switch arg := inst.Args[0].(type) {
		case x86asm.Reg:
			// jmp rax
			return TerminatorIndirectJump
		case x86asm.Mem:
			// jmp [rip+disp32] and jmp [disp] load their target from a
			// fixed slot (PLT/GOT), the target is not register-driven.
			if arg.Base == x86asm.RIP && arg.Index == 0 {
				return TerminatorOther
			}
			if arg.Base == 0 && arg.Index == 0 {
				return TerminatorOther
			}
			// jmp [rax*8+table]
			return TerminatorIndirectJump
		}
	}
	return TerminatorOther
}

// classifyARM64 decodes the last 4-byte word of code.
func classifyARM64(code []byte) (Terminator, bool) {
	const insnLen = 4

	if len(code) < insnLen {
		return TerminatorOther, false
	}
	inst, err := arm64asm.Decode(code[len(code)-insnLen:])
	if err != nil {
		return TerminatorOther, false
	}

	switch inst.Op {
	case arm64asm.RET, arm64asm.ERET:
		return TerminatorReturn, true
	case arm64asm.BR:
		return TerminatorIndirectJump, true
	}
	return TerminatorOther, true
}
