package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"gigatron/emu/log"
)

type mode byte

const (
	runMode      mode = iota // Run a ROM
	gt1InfosMode             // Show GT1 file infos
	ctlMode                  // Control a running emulator
	versionMode              // Show version
)

type (
	CLI struct {
		Run      Run      `cmd:"" help:"Run a Gigatron ROM in the emulator." default:"withargs"`
		Gt1Infos Gt1Infos `cmd:"" help:"Show GT1 file infos." name:"gt1-infos"`
		Ctl      Ctl      `cmd:"" help:"Control a running emulator over its rpc port."`
		Version  Version  `cmd:"" help:"Show gigatron version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"${rompath_help}" required:"true" type:"existingfile"`

		Gt1          string  `name:"gt1" help:"Upload this GT1 program once the ROM has booted." type:"existingfile"`
		Scale        int     `name:"scale" help:"Window scale factor." default:"0"`
		CRT          bool    `name:"crt" help:"Enable the CRT shader."`
		NoAudio      bool    `name:"no-audio" help:"Disable audio output."`
		Volume       float64 `name:"volume" help:"Audio volume, 0 to 1." default:"-1"`
		DisableVSync bool    `name:"no-vsync" help:"Disable display vsync."`
		CPUProfile   string  `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		Port         int     `name:"port" hidden:"true"`
	}

	Gt1Infos struct {
		Gt1Path string `arg:"" name:"/path/to/gt1" type:"existingfile"`
	}

	Ctl struct {
		Port   int    `name:"port" required:"true" help:"Port the emulator rpc server listens on."`
		Action string `arg:"" enum:"pause,resume,reset,stop,load" help:"One of pause, resume, reset, stop, load."`
		Path   string `arg:"" optional:"" help:"GT1 file path (load action only)."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"rompath_help":    "ROM image to run (raw big-endian 16-bit words).",
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("gigatron"),
		kong.Description("Gigatron TTL microcomputer emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch {
	case strings.HasPrefix(ctx.Command(), "gt1-infos"):
		cfg.mode = gt1InfosMode
	case strings.HasPrefix(ctx.Command(), "ctl"):
		cfg.mode = ctlMode
	case ctx.Command() == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
