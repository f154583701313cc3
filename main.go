package main

import (
	"fmt"
	"os"

	"gigatron/emu"
	"gigatron/gt1"
)

var version = "(devel)"

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case versionMode:
		fmt.Println("gigatron version", version)

	case gt1InfosMode:
		gt1InfosMain(cli.Gt1Infos)

	case ctlMode:
		ctlMain(cli.Ctl)

	case runMode:
		cfg := emu.LoadConfigOrDefault()
		emuMain(cli.Run, cfg)
	}
}

// gt1InfosMain prints the segment map of a GT1 file.
func gt1InfosMain(args Gt1Infos) {
	prog, err := gt1.Open(args.Gt1Path)
	checkf(err, "failed to open gt1 file")

	fmt.Printf("%s: %d segments, %d bytes\n", args.Gt1Path, len(prog.Segments), prog.TotalBytes())
	for i, seg := range prog.Segments {
		fmt.Printf("  segment %2d: %3d bytes at 0x%04X\n", i, len(seg.Data), seg.Address)
	}
	if prog.HasStartAddress() {
		fmt.Printf("  start address: 0x%04X\n", prog.StartAddress)
	} else {
		fmt.Println("  no start address")
	}
}
