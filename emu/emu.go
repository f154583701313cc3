package emu

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"gigatron/emu/log"
	"gigatron/gt1"
	"gigatron/hw"
)

// Emulator drives a Machine against the host: window, audio device,
// keyboard. Launch builds it, Run enters the frame loop.
type Emulator struct {
	Machine *Machine

	video *hw.Video
	sound *hw.SoundPlayer
	input *hw.InputProvider
	cfg   Config

	// Flags below are accessed concurrently by the emulation loop and
	// the control (rpc) side.
	quit   atomic.Bool
	paused atomic.Bool
	reset  atomic.Bool

	gt1req chan string

	romPath string
	stepReq bool
	muted   bool
}

// Launch powers up the machine, loads the ROM and opens the host window
// and audio device. It doesn't start emulating, call Run for that.
func Launch(romPath string, cfg Config) (*Emulator, error) {
	machine, err := PowerUp(hw.CPUConfig{RAMAddrWidth: cfg.Emulation.RAMAddrWidth})
	if err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}
	if err := machine.CPU.LoadROMFile(romPath); err != nil {
		return nil, err
	}

	vcfg := cfg.Video
	vcfg.Title = "Gigatron - " + filepath.Base(romPath)
	video, err := hw.NewVideo(vcfg)
	if err != nil {
		return nil, err
	}

	var sound *hw.SoundPlayer
	if cfg.Audio.DisableAudio {
		log.ModEmu.Warnf("audio disabled")
	} else {
		sound, err = hw.NewSoundPlayer()
		if err != nil {
			return nil, err
		}
		machine.Audio.SetVolume(float32(cfg.Audio.Volume))
	}

	return &Emulator{
		Machine: machine,
		video:   video,
		sound:   sound,
		input:   hw.NewInputProvider(cfg.Input),
		cfg:     cfg,
		gt1req:  make(chan string, 1),
		romPath: romPath,
	}, nil
}

// LoadGT1 requests an upload of the given GT1 file. Safe to call from
// any goroutine; the upload starts at the next frame boundary.
func (e *Emulator) LoadGT1(path string) error {
	select {
	case e.gt1req <- path:
		return nil
	default:
		return fmt.Errorf("an upload is already pending")
	}
}

// SetPause, Stop and Reset control the emulator loop in a
// concurrent-safe way.

func (e *Emulator) SetPause(pause bool) { e.paused.Store(pause) }
func (e *Emulator) Reset()              { e.reset.Store(true) }
func (e *Emulator) Stop()               { e.quit.Store(true) }

// Run enters the emulation loop and returns when the window is closed or
// Stop is called.
func (e *Emulator) Run() {
	const frameDuration = time.Second / FramesPerSecond

	last := time.Now()
	for !e.quit.Load() {
		e.handleEvents()
		e.handleRequests()

		if !e.paused.Load() || e.stepReq {
			e.stepReq = false
			e.Machine.SetButtons(e.input.Buttons())
			e.Machine.RunFrame()
			e.pollLoader()
		}

		if e.sound != nil {
			e.sound.QueueFrom(e.Machine.Audio)
		}
		if e.Machine.VGA.FrameReady() || e.paused.Load() {
			e.video.Render(e.Machine.VGA.Framebuffer())
		}

		// The GL swap paces us against the display; fall back to a
		// timer when vsync is off or the window is occluded.
		now := time.Now()
		if elapsed := now.Sub(last); elapsed < frameDuration {
			time.Sleep(frameDuration - elapsed)
		}
		last = time.Now()
	}

	if e.sound != nil {
		e.sound.Close()
	}
	e.video.Close()
	log.ModEmu.Infof("emulation loop exited")
}

func (e *Emulator) handleEvents() {
	evts := e.video.Poll()
	if evts.Quit {
		e.quit.Store(true)
	}
	if evts.DroppedFile != "" {
		e.handleDroppedFile(evts.DroppedFile)
	}
	for _, key := range evts.Pressed {
		switch key {
		case sdl.K_F5:
			e.reset.Store(true)
		case sdl.K_F6:
			if e.paused.Load() {
				e.stepReq = true
			}
		case sdl.K_SPACE:
			e.paused.Store(!e.paused.Load())
		case sdl.K_m:
			e.muted = !e.muted
			e.Machine.Audio.SetMute(e.muted)
		}
	}
}

func (e *Emulator) handleDroppedFile(path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rom":
		if err := e.Machine.CPU.LoadROMFile(path); err != nil {
			log.ModEmu.Errorf("%v", err)
			return
		}
		e.romPath = path
		e.video.SetTitle("Gigatron - " + filepath.Base(path))
		e.Machine.Reset()
	case ".gt1":
		e.startGT1(path)
	default:
		log.ModEmu.Warnf("ignoring dropped file %s", path)
	}
}

func (e *Emulator) handleRequests() {
	if e.reset.CompareAndSwap(true, false) {
		log.ModEmu.Infof("machine reset")
		e.Machine.Reset()
	}
	select {
	case path := <-e.gt1req:
		e.startGT1(path)
	default:
	}
}

func (e *Emulator) startGT1(path string) {
	prog, err := gt1.Open(path)
	if err != nil {
		log.ModEmu.Errorf("failed to load gt1: %v", err)
		return
	}
	if err := e.Machine.StartGT1(prog); err != nil {
		log.ModEmu.Errorf("failed to start upload: %v", err)
	}
}

// pollLoader surfaces upload completion and failure, then releases the
// loader so the gamepad gets the input port back.
func (e *Emulator) pollLoader() {
	ldr := e.Machine.Loader
	switch {
	case ldr.IsComplete():
		log.ModEmu.Infof("gt1 program loaded")
		ldr.Reset()
	case ldr.HasError():
		log.ModEmu.Errorf("gt1 load failed: %s", ldr.Err())
		ldr.Reset()
	}
}
