package hw

import (
	"github.com/veandco/go-sdl2/sdl"

	"gigatron/emu/log"
)

// Gamepad button bits, active high. The input port is active low at the
// CPU pin, so callers drive it as buttons^0xFF.
const (
	ButtonRight uint8 = 1 << iota
	ButtonLeft
	ButtonDown
	ButtonUp
	ButtonStart
	ButtonSelect
	ButtonB
	ButtonA
)

const numButtons = 8

// buttonNames follow bit order, LSB first.
var buttonNames = [numButtons]string{
	"Right", "Left", "Down", "Up", "Start", "Select", "B", "A",
}

// InputConfig maps gamepad buttons to SDL key names. Unset entries fall
// back to the default layout.
type InputConfig struct {
	Keys map[string]string `toml:"keys"`
}

// Default keyboard layout: arrows for the pad, Z/X for A/B.
var defaultKeys = map[string]string{
	"Right":  "Right",
	"Left":   "Left",
	"Down":   "Down",
	"Up":     "Up",
	"Start":  "Return",
	"Select": "Backspace",
	"B":      "X",
	"A":      "Z",
}

// InputProvider polls the SDL keyboard state and assembles the active-high
// gamepad byte.
type InputProvider struct {
	keystate  []uint8
	scancodes [numButtons]sdl.Scancode
}

func NewInputProvider(cfg InputConfig) *InputProvider {
	p := new(InputProvider)
	sdl.Do(func() { p.keystate = sdl.GetKeyboardState() })

	for bit, name := range buttonNames {
		keyname, ok := cfg.Keys[name]
		if !ok {
			keyname = defaultKeys[name]
		}
		sc := sdl.GetScancodeFromName(keyname)
		if sc == sdl.SCANCODE_UNKNOWN {
			log.ModInput.Warnf("unknown key %q for button %s, using default", keyname, name)
			sc = sdl.GetScancodeFromName(defaultKeys[name])
		}
		p.scancodes[bit] = sc
	}
	return p
}

// Buttons returns the current button state, one bit per pressed button.
func (p *InputProvider) Buttons() uint8 {
	var state uint8
	for bit, sc := range p.scancodes {
		if p.keystate[sc] != 0 {
			state |= 1 << bit
		}
	}
	return state
}
