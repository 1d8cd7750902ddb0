// Command mkimage assembles the app registry blob internal/kernel/loader
// embeds into the kernel image. It walks a directory of host-built
// riscv64 ELF binaries, sanity-checks each one's ELF header, and writes
// a single length-prefixed blob: a uint32 app count, then per app a
// uint16 name length, the name, a uint32 data length and the raw ELF
// bytes. This is the one place in this repository debug/elf is used:
// everywhere the kernel itself runs, that package drags in an os
// dependency a freestanding binary cannot carry.
package main

import (
	"debug/elf"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

func main() {
	srcDir := flag.String("src", "", "directory of built app ELF binaries")
	outPath := flag.String("out", "", "path to write the assembled image to")
	flag.Parse()

	if *srcDir == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mkimage -src <apps dir> -out <image path>")
		os.Exit(2)
	}

	if err := run(*srcDir, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}
}

func run(srcDir, outPath string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(names)))

	for _, name := range names {
		path := filepath.Join(srcDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := checkELF(path); err != nil {
			return err
		}

		nameLen := make([]byte, 2)
		binary.LittleEndian.PutUint16(nameLen, uint16(len(name)))
		buf = append(buf, nameLen...)
		buf = append(buf, name...)

		dataLen := make([]byte, 4)
		binary.LittleEndian.PutUint32(dataLen, uint32(len(data)))
		buf = append(buf, dataLen...)
		buf = append(buf, data...)
	}

	return os.WriteFile(outPath, buf, 0o644)
}

// checkELF rejects anything that is not a riscv64 executable before it
// gets baked into the registry; a bad entry here would otherwise surface
// as a mysterious parseELF64 failure deep inside a running kernel.
func checkELF(path string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("%s: not a valid ELF file: %w", path, err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return fmt.Errorf("%s: not a 64-bit ELF", path)
	}
	if f.Machine != elf.EM_RISCV {
		return fmt.Errorf("%s: not built for riscv64", path)
	}
	return nil
}
