package memset

import (
	"encoding/binary"

	"rv64kernel/internal/kernel"
)

// The kernel only ever loads its own statically-linked, non-PIE ELF64
// binaries, so this is a minimal program-header reader rather than a
// wrapper around the standard library's debug/elf: that package opens
// files through os.File, which assumes a hosted operating system this
// kernel does not have. Everything it actually needs — the entry point
// and each PT_LOAD segment's virtual address, size and file contents —
// is a handful of fixed-offset fields read with encoding/binary, which
// has no such dependency.
var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

const ptLoad = 1

// programHeader mirrors the fields of an Elf64_Phdr this loader cares
// about.
type programHeader struct {
	readable, writable, executable bool
	offset, fileSize                uint64
	virtAddr, memSize                uint64
}

type parsedELF struct {
	entry   uint64
	loads   []programHeader
}

func parseELF64(data []byte) (*parsedELF, *kernel.Error) {
	if len(data) < 64 || [4]byte{data[0], data[1], data[2], data[3]} != elfMagic {
		return nil, errInvalidELF
	}

	entry := binary.LittleEndian.Uint64(data[24:32])
	phOff := binary.LittleEndian.Uint64(data[32:40])
	phEntSize := binary.LittleEndian.Uint16(data[54:56])
	phNum := binary.LittleEndian.Uint16(data[56:58])

	out := &parsedELF{entry: entry}
	for i := uint16(0); i < phNum; i++ {
		base := phOff + uint64(i)*uint64(phEntSize)
		if base+56 > uint64(len(data)) {
			return nil, errInvalidELF
		}
		ph := data[base : base+56]

		pType := binary.LittleEndian.Uint32(ph[0:4])
		if pType != ptLoad {
			continue
		}
		flags := binary.LittleEndian.Uint32(ph[4:8])

		out.loads = append(out.loads, programHeader{
			readable:   flags&4 != 0,
			writable:   flags&2 != 0,
			executable: flags&1 != 0,
			offset:     binary.LittleEndian.Uint64(ph[8:16]),
			virtAddr:   binary.LittleEndian.Uint64(ph[16:24]),
			fileSize:   binary.LittleEndian.Uint64(ph[32:40]),
			memSize:    binary.LittleEndian.Uint64(ph[40:48]),
		})
	}

	return out, nil
}

var errInvalidELF = &kernel.Error{Module: "memset", Message: "invalid ELF magic"}
