package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/veandco/go-sdl2/sdl"

	"gigatron/emu"
	"gigatron/emu/rpc"
)

// emuMain runs the emulator with the given rom.
func emuMain(args Run, cfg emu.Config) {
	var exitcode int
	sdl.Main(func() {
		// Command line flags override the saved configuration.
		if args.Scale > 0 {
			cfg.Video.Scale = args.Scale
		}
		if args.CRT {
			cfg.Video.CRT = true
		}
		if args.DisableVSync {
			cfg.Video.DisableVSync = true
		}
		if args.NoAudio {
			cfg.Audio.DisableAudio = true
		}
		if args.Volume >= 0 {
			cfg.Audio.Volume = min(args.Volume, 1)
		}

		emulator, err := emu.Launch(args.RomPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start emulator: %v\n", err)
			exitcode = 1
			return
		}

		if args.CPUProfile != "" {
			f, err := os.Create(args.CPUProfile)
			checkf(err, "failed to create cpu profile file")
			checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
			defer func() {
				pprof.StopCPUProfile()
				f.Close()
				fmt.Println("CPU profile written to", args.CPUProfile)
			}()
		}

		if args.Port != 0 {
			server, err := rpc.NewServer(args.Port, emulator)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rpc error: %v\n", err)
				exitcode = 1
				return
			}
			defer server.Close()
		}

		if args.Gt1 != "" {
			if err := emulator.LoadGT1(args.Gt1); err != nil {
				fmt.Fprintf(os.Stderr, "failed to queue gt1 upload: %v\n", err)
			}
		}

		emulator.Run()
	})
	os.Exit(exitcode)
}

// ctlMain sends a control command to a running emulator.
func ctlMain(args Ctl) {
	client, err := rpc.NewClient(args.Port)
	checkf(err, "failed to connect to emulator on port %d", args.Port)
	defer client.Close()

	switch args.Action {
	case "pause":
		err = client.SetPause(true)
	case "resume":
		err = client.SetPause(false)
	case "reset":
		err = client.Reset()
	case "stop":
		err = client.Stop()
	case "load":
		if args.Path == "" {
			fatalf("load requires a GT1 file path")
		}
		err = client.LoadGT1(args.Path)
	}
	checkf(err, "%s failed", args.Action)
}
