package emu

import (
	"gigatron/gt1"
	"gigatron/hw"
)

// FramesPerSecond is the nominal VGA refresh rate the machine is driven
// at. One driven frame is Hz/60 clock cycles.
const FramesPerSecond = 60

// Machine owns the four lock-stepped Gigatron subsystems. They must be
// ticked from a single goroutine; Machine.Tick enforces the required
// order (input write, CPU, then VGA/audio/loader against the
// post-execute state).
type Machine struct {
	CPU    *hw.CPU
	VGA    *hw.VGA
	Audio  *hw.Audio
	Loader *hw.Loader

	buttons uint8 // active high, owned by the driving goroutine
}

// PowerUp allocates and wires a machine. RAM comes up randomized, the
// way real hardware does.
func PowerUp(cfg hw.CPUConfig) (*Machine, error) {
	cpu, err := hw.NewCPU(cfg)
	if err != nil {
		return nil, err
	}
	return &Machine{
		CPU:    cpu,
		VGA:    hw.NewVGA(cpu),
		Audio:  hw.NewAudio(cpu),
		Loader: hw.NewLoader(cpu),
	}, nil
}

// Reset returns every subsystem to its power-on state. RAM and ROM are
// preserved; any upload in progress is cancelled.
func (m *Machine) Reset() {
	m.Loader.Reset()
	m.CPU.Reset()
	m.VGA.Reset()
	m.Audio.Reset()
}

// SetButtons records the active-high gamepad state. It is applied to the
// input register each cycle, except while the loader owns the port.
func (m *Machine) SetButtons(buttons uint8) { m.buttons = buttons }

// Tick advances the whole machine by one clock cycle.
func (m *Machine) Tick() {
	// User input is active low at the pin and must be in place before
	// the instruction executes. The loader instead drives the register
	// itself, after observing the executed cycle.
	loading := m.Loader.IsActive()
	if !loading {
		m.CPU.SetInput(m.buttons ^ 0xFF)
	}

	m.CPU.Tick()
	m.VGA.Tick()
	m.Audio.Tick()
	if loading {
		m.Loader.Tick()
	}
}

// RunFrame advances the machine by one display frame worth of cycles.
func (m *Machine) RunFrame() {
	for range int(m.CPU.Hz) / FramesPerSecond {
		m.Tick()
	}
}

// StartGT1 begins uploading prog through the serial loader protocol. The
// CPU is reset as a side effect (the loader drives the ROM's menu from
// boot); VGA and audio state are left as they are.
func (m *Machine) StartGT1(prog *gt1.Program) error {
	return m.Loader.Start(prog)
}
