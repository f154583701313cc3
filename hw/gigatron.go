package hw

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"

	"gigatron/emu/log"
)

// Default hardware configuration. The stock Gigatron runs at 6.25MHz with
// 64K words of ROM; RAM defaults to 128KB so extended ROMs with bank
// switching work out of the box.
const (
	DefaultHz           = 6250000
	DefaultROMAddrWidth = 16
	DefaultRAMAddrWidth = 17
)

// OUT register sync bits, active low at the pin.
const (
	OutHSync = 0x40
	OutVSync = 0x80
)

// Instruction word fields: OP[15:13] | MODE[12:10] | BUS[9:8] | D[7:0].
const (
	opLD = iota
	opAND
	opOR
	opXOR
	opADD
	opSUB
	opST
	opBR
)

const (
	busD = iota
	busRAM
	busAC
	busIN
)

// Addressing modes. For ALU operations the mode selects both the effective
// RAM address and the result destination.
const (
	modeD = iota
	modeX
	modeYD
	modeYX
	modeDX  // result to X
	modeDY  // result to Y
	modeOut // result to OUT
	modeYXInc
)

// Branch conditions (mode field of opBR).
const (
	brJMP = iota // far jump, Y supplies the high byte
	brGT
	brLT
	brNE
	brEQ
	brGE
	brLE
	brBRA // always, within the current page
)

type CPUConfig struct {
	Hz           uint32
	ROMAddrWidth uint // ROM size is 1<<width 16-bit words
	RAMAddrWidth uint // RAM size is 1<<width bytes
}

func (cfg *CPUConfig) applyDefaults() {
	if cfg.Hz == 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.ROMAddrWidth == 0 {
		cfg.ROMAddrWidth = DefaultROMAddrWidth
	}
	if cfg.RAMAddrWidth == 0 {
		cfg.RAMAddrWidth = DefaultRAMAddrWidth
	}
}

// CPU models the Gigatron TTL processor: a Harvard-architecture 8-bit CPU
// executing one instruction per clock from 16-bit wide ROM.
type CPU struct {
	Hz uint32

	rom     []uint16
	romMask uint16
	ram     []byte
	ramMask uint32

	PC     uint16
	NextPC uint16
	AC     uint8
	X      uint8
	Y      uint8
	OUT    uint8
	OUTX   uint8
	IN     uint8

	// 128K+ expansion registers. On boards with more than 64KB of RAM the
	// ST [Y,X++] idiom writes the CTRL register instead of memory.
	Ctrl     uint16
	bank     uint32
	PrevCtrl int32 // -1 when CTRL was not written this tick
	MISO     uint8

	Cycles uint64
}

// NewCPU creates a CPU with allocated ROM and RAM. RAM content is
// randomized once here to model power-on indeterminacy; Reset does not
// touch it.
func NewCPU(cfg CPUConfig) (*CPU, error) {
	cfg.applyDefaults()
	if cfg.ROMAddrWidth > 16 {
		return nil, fmt.Errorf("rom address width %d exceeds 16 bits", cfg.ROMAddrWidth)
	}
	if cfg.RAMAddrWidth > 24 {
		return nil, fmt.Errorf("ram address width %d exceeds 24 bits", cfg.RAMAddrWidth)
	}

	cpu := &CPU{
		Hz:      cfg.Hz,
		rom:     make([]uint16, 1<<cfg.ROMAddrWidth),
		romMask: uint16(1<<cfg.ROMAddrWidth - 1),
		ram:     make([]byte, 1<<cfg.RAMAddrWidth),
		ramMask: uint32(1<<cfg.RAMAddrWidth - 1),
	}
	for i := range cpu.ram {
		cpu.ram[i] = uint8(rand.Uint32())
	}
	cpu.Reset()

	log.ModCPU.WithFields(log.Fields{
		"hz":  cpu.Hz,
		"rom": len(cpu.rom),
		"ram": len(cpu.ram),
	}).Debugf("cpu created")
	return cpu, nil
}

// Reset returns the CPU to its power-on register state. ROM and RAM are
// left intact.
func (c *CPU) Reset() {
	c.PC = 0
	c.NextPC = 1
	c.AC = 0
	c.X = 0
	c.Y = 0
	c.OUT = 0
	c.OUTX = 0
	c.IN = 0xFF // active low, all buttons released

	c.Ctrl = 0x7C
	c.bank = 0
	c.PrevCtrl = -1
	c.MISO = 0

	c.Cycles = 0
}

// ROMSize returns the ROM size in 16-bit words.
func (c *CPU) ROMSize() int { return len(c.rom) }

// RAMSize returns the RAM size in bytes.
func (c *CPU) RAMSize() int { return len(c.ram) }

// extended reports whether the 128K+ expansion is present.
func (c *CPU) extended() bool { return len(c.ram) > 1<<16 }

// SetInput drives the input register. The value is applied as-is and must
// already be active low (pressed buttons as zero bits).
func (c *CPU) SetInput(val uint8) { c.IN = val }

// Peek reads a byte from RAM through bank translation, without side
// effects. Used by tests and debug tooling.
func (c *CPU) Peek(addr uint16) uint8 { return c.ram[c.translate(addr)] }

// Poke writes a byte to RAM through bank translation.
func (c *CPU) Poke(addr uint16, val uint8) { c.ram[c.translate(addr)] = val }

// PokeROM stores an instruction word. Used by tests and tooling.
func (c *CPU) PokeROM(addr uint16, word uint16) { c.rom[addr&c.romMask] = word }

// ROMWord returns the instruction word at addr.
func (c *CPU) ROMWord(addr uint16) uint16 { return c.rom[addr&c.romMask] }

// HSyncActive reports whether HSYNC is asserted (active low).
func (c *CPU) HSyncActive() bool { return c.OUT&OutHSync == 0 }

// VSyncActive reports whether VSYNC is asserted (active low).
func (c *CPU) VSyncActive() bool { return c.OUT&OutVSync == 0 }

// Color returns the 6-bit RRGGBB color currently on the output pins.
func (c *CPU) Color() uint8 { return c.OUT & 0x3F }

// translate maps a CPU address to a physical RAM offset. With the 128K+
// expansion, addresses with bit 15 set are redirected through the bank
// XOR mask.
func (c *CPU) translate(addr uint16) uint32 {
	phys := uint32(addr)
	if phys&0x8000 != 0 {
		phys ^= c.bank
	}
	return phys & c.ramMask
}

// calcAddr computes the effective RAM address for the given mode.
// Mode YX++ post-increments X.
func (c *CPU) calcAddr(mode, d uint8) uint16 {
	switch mode {
	case modeX:
		return uint16(c.X)
	case modeYD:
		return uint16(c.Y)<<8 | uint16(d)
	case modeYX:
		return uint16(c.Y)<<8 | uint16(c.X)
	case modeYXInc:
		addr := uint16(c.Y)<<8 | uint16(c.X)
		c.X++
		return addr
	default: // modeD, modeDX, modeDY, modeOut
		return uint16(d)
	}
}

// Tick advances the simulation by one clock cycle.
func (c *CPU) Tick() {
	c.PrevCtrl = -1

	pc := c.PC
	c.PC = c.NextPC
	c.NextPC = (c.PC + 1) & c.romMask

	ir := c.rom[pc]
	op := uint8(ir >> 13 & 7)
	mode := uint8(ir >> 10 & 7)
	bus := uint8(ir >> 8 & 3)
	d := uint8(ir)

	switch op {
	case opST:
		c.store(mode, bus, d)
	case opBR:
		c.branch(mode, bus, d)
	default:
		c.alu(op, mode, bus, d)
	}

	c.Cycles++
}

// Run advances the simulation by n clock cycles.
func (c *CPU) Run(n int) {
	for range n {
		c.Tick()
	}
}

func (c *CPU) alu(op, mode, bus, d uint8) {
	var b uint8
	switch bus {
	case busD:
		b = d
	case busRAM:
		addr := c.calcAddr(mode, d)
		if c.Ctrl&1 != 0 {
			b = c.MISO // SPI read replaces RAM on the data bus
		} else {
			b = c.ram[c.translate(addr)]
		}
	case busAC:
		b = c.AC
	case busIN:
		b = c.IN
	}

	switch op {
	case opLD:
		// b unchanged
	case opAND:
		b = c.AC & b
	case opOR:
		b = c.AC | b
	case opXOR:
		b = c.AC ^ b
	case opADD:
		b = c.AC + b
	case opSUB:
		b = c.AC - b
	}

	switch mode {
	case modeDX:
		c.X = b
	case modeDY:
		c.Y = b
	case modeOut, modeYXInc:
		rising := ^c.OUT & b
		c.OUT = b
		// A rising edge on OUT bit 6 latches AC into OUTX. This is the
		// only path that updates OUTX.
		if rising&0x40 != 0 {
			c.OUTX = c.AC
		}
	default:
		c.AC = b
	}
}

func (c *CPU) store(mode, bus, d uint8) {
	var b uint8
	write := true
	addr := c.calcAddr(mode, d)

	switch bus {
	case busD:
		b = d
	case busRAM:
		if c.extended() {
			// ST [Y,X++],$xx writes the CTRL register, not RAM.
			c.PrevCtrl = int32(c.Ctrl)
			c.Ctrl = addr & 0x80FD
			c.bank = uint32(c.Ctrl&0xC0)<<9 ^ 0x8000
			write = false
		} else {
			b = 0 // undefined on stock hardware
		}
	case busAC:
		b = c.AC
	case busIN:
		b = c.IN
	}

	if write {
		c.ram[c.translate(addr)] = b
	}

	// Modes 4 and 5 copy AC, not the stored value, into X or Y.
	switch mode {
	case modeDX:
		c.X = c.AC
	case modeDY:
		c.Y = c.AC
	}
}

func (c *CPU) branch(mode, bus, d uint8) {
	const zero = 0x80
	ac := c.AC ^ zero // bias so unsigned comparison behaves signed
	base := c.PC & 0xFF00

	var taken bool
	switch mode {
	case brJMP:
		taken = true
		base = uint16(c.Y) << 8
	case brGT:
		taken = ac > zero
	case brLT:
		taken = ac < zero
	case brNE:
		taken = ac != zero
	case brEQ:
		taken = ac == zero
	case brGE:
		taken = ac >= zero
	case brLE:
		taken = ac <= zero
	case brBRA:
		taken = true
	}

	if taken {
		c.NextPC = (base | uint16(c.branchOffset(bus, d))) & c.romMask
	}
}

func (c *CPU) branchOffset(bus, d uint8) uint8 {
	switch bus {
	case busRAM:
		// The offset is always read from page zero, which every RAM size
		// covers, so plain masking is enough.
		return c.ram[uint32(d)&c.ramMask]
	case busAC:
		return c.AC
	case busIN:
		return c.IN
	default:
		return d
	}
}

// LoadROM copies big-endian 16-bit instruction words into ROM and returns
// the number of words stored. Excess input is ignored; the rest of ROM is
// left as it was.
func (c *CPU) LoadROM(data []byte) int {
	words := min(len(data)/2, len(c.rom))
	for i := range words {
		c.rom[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return words
}

// LoadROMFile loads a ROM image from disk.
func (c *CPU) LoadROMFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rom: %w", err)
	}
	words := c.LoadROM(buf)
	if words == 0 {
		return fmt.Errorf("rom file %s contains no instruction words", path)
	}
	log.ModCPU.WithField("words", words).Infof("rom loaded from %s", path)
	return nil
}
