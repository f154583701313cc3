package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// encode builds an instruction word from its fields.
func encode(op, mode, bus, d uint8) uint16 {
	return uint16(op)<<13 | uint16(mode)<<10 | uint16(bus)<<8 | uint16(d)
}

func newTestCPU(t *testing.T) *CPU {
	t.Helper()
	cpu, err := NewCPU(CPUConfig{})
	if err != nil {
		t.Fatal(err)
	}
	return cpu
}

func TestCPUConfigBounds(t *testing.T) {
	if _, err := NewCPU(CPUConfig{ROMAddrWidth: 17}); err == nil {
		t.Error("NewCPU accepted a 17-bit rom address width")
	}
	if _, err := NewCPU(CPUConfig{RAMAddrWidth: 25}); err == nil {
		t.Error("NewCPU accepted a 25-bit ram address width")
	}
}

func TestCPUReset(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.AC = 0x42
	cpu.Poke(0x1234, 0x99)
	cpu.Run(10)
	cpu.Reset()

	if cpu.PC != 0 || cpu.NextPC != 1 || cpu.AC != 0 || cpu.Cycles != 0 {
		t.Errorf("registers not back at power-on state: pc=%#x nextpc=%#x ac=%#x cycles=%d",
			cpu.PC, cpu.NextPC, cpu.AC, cpu.Cycles)
	}
	if cpu.IN != 0xFF {
		t.Errorf("IN = %#x, want 0xFF (all buttons released)", cpu.IN)
	}
	if cpu.Ctrl != 0x7C {
		t.Errorf("Ctrl = %#x, want 0x7C", cpu.Ctrl)
	}
	if got := cpu.Peek(0x1234); got != 0x99 {
		t.Errorf("reset cleared RAM: Peek(0x1234) = %#x, want 0x99", got)
	}
}

func TestLDImmediate(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.PokeROM(0, 0x0000) // LD $00

	cpu.Tick()
	if cpu.AC != 0 || cpu.PC != 1 || cpu.NextPC != 2 || cpu.Cycles != 1 {
		t.Errorf("got ac=%#x pc=%#x nextpc=%#x cycles=%d, want ac=0 pc=1 nextpc=2 cycles=1",
			cpu.AC, cpu.PC, cpu.NextPC, cpu.Cycles)
	}
}

func TestALUOps(t *testing.T) {
	tests := []struct {
		name string
		op   uint8
		ac   uint8
		d    uint8
		want uint8
	}{
		{"ld", opLD, 0x55, 0x0F, 0x0F},
		{"and", opAND, 0x3C, 0x0F, 0x0C},
		{"or", opOR, 0x30, 0x0F, 0x3F},
		{"xor", opXOR, 0xFF, 0x0F, 0xF0},
		{"add", opADD, 0x20, 0x05, 0x25},
		{"add wrap", opADD, 0xFF, 0x02, 0x01},
		{"sub", opSUB, 0x20, 0x05, 0x1B},
		{"sub wrap", opSUB, 0x00, 0x01, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newTestCPU(t)
			cpu.AC = tt.ac
			cpu.PokeROM(0, encode(tt.op, modeD, busD, tt.d))
			cpu.Tick()
			if cpu.AC != tt.want {
				t.Errorf("AC = %#x, want %#x", cpu.AC, tt.want)
			}
		})
	}
}

func TestALUBusSources(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.Poke(0x42, 0xA5)
	cpu.PokeROM(0, encode(opLD, modeD, busRAM, 0x42))
	cpu.Tick()
	if cpu.AC != 0xA5 {
		t.Errorf("LD [D]: AC = %#x, want 0xA5", cpu.AC)
	}

	cpu.Reset()
	cpu.SetInput(0x5A)
	cpu.PokeROM(0, encode(opLD, modeD, busIN, 0))
	cpu.Tick()
	if cpu.AC != 0x5A {
		t.Errorf("LD IN: AC = %#x, want 0x5A", cpu.AC)
	}

	cpu.Reset()
	cpu.AC = 0x33
	cpu.PokeROM(0, encode(opADD, modeD, busAC, 0))
	cpu.Tick()
	if cpu.AC != 0x66 {
		t.Errorf("ADD AC: AC = %#x, want 0x66", cpu.AC)
	}
}

func TestALUAddressModes(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.X = 0x10
	cpu.Y = 0x02
	cpu.Poke(0x0010, 0x11)       // [X]
	cpu.Poke(0x0210, 0x22)       // [Y,X]
	cpu.Poke(0x0230, 0x33)       // [Y,D]
	cpu.PokeROM(0, encode(opLD, modeX, busRAM, 0))
	cpu.PokeROM(1, encode(opLD, modeYX, busRAM, 0))
	cpu.PokeROM(2, encode(opLD, modeYD, busRAM, 0x30))

	cpu.Tick()
	if cpu.AC != 0x11 {
		t.Errorf("LD [X]: AC = %#x, want 0x11", cpu.AC)
	}
	cpu.Tick()
	if cpu.AC != 0x22 {
		t.Errorf("LD [Y,X]: AC = %#x, want 0x22", cpu.AC)
	}
	cpu.Tick()
	if cpu.AC != 0x33 {
		t.Errorf("LD [Y,D]: AC = %#x, want 0x33", cpu.AC)
	}
}

func TestALUDestinations(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.PokeROM(0, encode(opLD, modeDX, busD, 0x44))
	cpu.PokeROM(1, encode(opLD, modeDY, busD, 0x55))
	cpu.Run(2)
	if cpu.X != 0x44 || cpu.Y != 0x55 {
		t.Errorf("X = %#x, Y = %#x, want 0x44, 0x55", cpu.X, cpu.Y)
	}
	if cpu.AC != 0 {
		t.Errorf("AC = %#x, modes D,X and D,Y must not touch AC", cpu.AC)
	}
}

func TestOUTXLatch(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.AC = 0x5A
	cpu.OUT = 0x00
	cpu.PokeROM(0, encode(opLD, modeOut, busD, 0xC0)) // raises both sync bits

	cpu.Tick()
	if cpu.OUT != 0xC0 {
		t.Errorf("OUT = %#x, want 0xC0", cpu.OUT)
	}
	if cpu.OUTX != 0x5A {
		t.Errorf("OUTX = %#x, want AC latched on rising OUT bit 6", cpu.OUTX)
	}

	// Bit 6 stays high: no new rising edge, OUTX must not budge.
	cpu.AC = 0x99
	cpu.PokeROM(1, encode(opLD, modeOut, busD, 0xC5))
	cpu.Tick()
	if cpu.OUTX != 0x5A {
		t.Errorf("OUTX = %#x, latched again without a rising edge", cpu.OUTX)
	}

	// Drop bit 6, then raise it again: latch fires.
	cpu.PokeROM(2, encode(opLD, modeOut, busD, 0x00))
	cpu.PokeROM(3, encode(opLD, modeOut, busD, 0x40))
	cpu.Run(2)
	if cpu.OUTX != 0x99 {
		t.Errorf("OUTX = %#x, want 0x99 after a fresh rising edge", cpu.OUTX)
	}
}

func TestOutYXIncrement(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.Y = 0x01
	cpu.X = 0xFF
	cpu.Poke(0x01FF, 0xC0)
	cpu.PokeROM(0, encode(opLD, modeYXInc, busRAM, 0))
	cpu.Tick()
	if cpu.OUT != 0xC0 {
		t.Errorf("OUT = %#x, want 0xC0", cpu.OUT)
	}
	if cpu.X != 0x00 {
		t.Errorf("X = %#x, want post-increment wrap to 0", cpu.X)
	}
}

func TestStore(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.AC = 0x77
	cpu.PokeROM(0, encode(opST, modeD, busAC, 0x30))
	cpu.Tick()
	if got := cpu.Peek(0x30); got != 0x77 {
		t.Errorf("ST AC,[D]: mem = %#x, want 0x77", got)
	}

	cpu.Reset()
	cpu.SetInput(0xAB)
	cpu.PokeROM(0, encode(opST, modeD, busIN, 0x31))
	cpu.Tick()
	if got := cpu.Peek(0x31); got != 0xAB {
		t.Errorf("ST IN,[D]: mem = %#x, want 0xAB", got)
	}
}

func TestStoreCopiesACIntoIndex(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.AC = 0x12
	cpu.PokeROM(0, encode(opST, modeDX, busD, 0x99))
	cpu.Tick()
	if got := cpu.Peek(0x99); got != 0x99 {
		t.Errorf("mem = %#x, want stored D value 0x99", got)
	}
	if cpu.X != 0x12 {
		t.Errorf("X = %#x, want AC (0x12), not the stored value", cpu.X)
	}

	cpu.Reset()
	cpu.AC = 0x34
	cpu.PokeROM(0, encode(opST, modeDY, busD, 0x98))
	cpu.Tick()
	if cpu.Y != 0x34 {
		t.Errorf("Y = %#x, want AC (0x34)", cpu.Y)
	}
}

func TestCtrlRegisterWrite(t *testing.T) {
	cpu := newTestCPU(t) // default 128KB, expansion active
	cpu.Y = 0x78
	cpu.X = 0xFD
	before := cpu.Peek(0x78FD)

	// ST [Y,X++] with the RAM bus source writes CTRL, not memory.
	cpu.PokeROM(0, encode(opST, modeYXInc, busRAM, 0))
	cpu.Tick()

	if cpu.PrevCtrl != 0x7C {
		t.Errorf("PrevCtrl = %#x, want previous CTRL 0x7C", cpu.PrevCtrl)
	}
	if cpu.Ctrl != 0x78FD&0x80FD {
		t.Errorf("Ctrl = %#x, want %#x", cpu.Ctrl, 0x78FD&0x80FD)
	}
	wantBank := uint32(cpu.Ctrl&0xC0)<<9 ^ 0x8000
	if cpu.bank != wantBank {
		t.Errorf("bank = %#x, want %#x", cpu.bank, wantBank)
	}
	if cpu.X != 0xFE {
		t.Errorf("X = %#x, want post-increment 0xFE", cpu.X)
	}
	if got := cpu.Peek(0x78FD); got != before {
		t.Errorf("RAM written during CTRL write: %#x, want %#x", got, before)
	}

	// PrevCtrl resets to -1 on the next tick.
	cpu.PokeROM(1, 0)
	cpu.Tick()
	if cpu.PrevCtrl != -1 {
		t.Errorf("PrevCtrl = %d, want -1 on a tick without CTRL write", cpu.PrevCtrl)
	}
}

func TestBankTranslation(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.bank = 0x10000

	// Below 0x8000 the bank mask is ignored.
	cpu.Poke(0x1234, 0x11)
	if cpu.ram[0x1234] != 0x11 {
		t.Errorf("low address was translated")
	}

	// Bit 15 set: address is XORed with the bank mask.
	cpu.Poke(0x8004, 0x22)
	if got := cpu.ram[0x18004]; got != 0x22 {
		t.Errorf("ram[0x18004] = %#x, want 0x22", got)
	}
	if got := cpu.Peek(0x8004); got != 0x22 {
		t.Errorf("Peek(0x8004) = %#x, want 0x22", got)
	}
}

func TestSPIReadReplacesRAM(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.Poke(0x40, 0x77)
	cpu.MISO = 0xE1
	cpu.Ctrl |= 1

	cpu.PokeROM(0, encode(opLD, modeD, busRAM, 0x40))
	cpu.Tick()
	if cpu.AC != 0xE1 {
		t.Errorf("AC = %#x, want MISO value 0xE1 while CTRL bit 0 is set", cpu.AC)
	}
}

func TestBranchConditions(t *testing.T) {
	tests := []struct {
		name  string
		mode  uint8
		ac    uint8
		taken bool
	}{
		{"gt pos", brGT, 0x01, true},
		{"gt zero", brGT, 0x00, false},
		{"gt neg", brGT, 0xFF, false},
		{"lt neg", brLT, 0x80, true},
		{"lt zero", brLT, 0x00, false},
		{"ne", brNE, 0x05, true},
		{"ne zero", brNE, 0x00, false},
		{"eq", brEQ, 0x00, true},
		{"eq nonzero", brEQ, 0x01, false},
		{"ge zero", brGE, 0x00, true},
		{"ge neg", brGE, 0xFF, false},
		{"le zero", brLE, 0x00, true},
		{"le pos", brLE, 0x01, false},
		{"bra", brBRA, 0xAA, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newTestCPU(t)
			cpu.AC = tt.ac
			cpu.PokeROM(0, encode(opBR, tt.mode, busD, 0x50))
			cpu.Tick()

			want := uint16(2)
			if tt.taken {
				want = 0x50 // page 0
			}
			if cpu.NextPC != want {
				t.Errorf("NextPC = %#x, want %#x", cpu.NextPC, want)
			}
		})
	}
}

func TestBRAWithinPage(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.PC = 0x0340
	cpu.NextPC = 0x0341
	cpu.PokeROM(0x0340, encode(opBR, brBRA, busD, 0x50))
	cpu.Tick()
	if cpu.NextPC != 0x0350 {
		t.Errorf("NextPC = %#x, want 0x0350", cpu.NextPC)
	}
}

func TestJMPFar(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.Y = 0x12
	cpu.PokeROM(0, encode(opBR, brJMP, busD, 0x34))
	cpu.Tick()
	if cpu.NextPC != 0x1234 {
		t.Errorf("NextPC = %#x, want 0x1234", cpu.NextPC)
	}
}

func TestBranchOffsetFromBus(t *testing.T) {
	cpu := newTestCPU(t)
	cpu.Poke(0x20, 0x77)
	cpu.PokeROM(0, encode(opBR, brBRA, busRAM, 0x20))
	cpu.Tick()
	if cpu.NextPC != 0x77 {
		t.Errorf("NextPC = %#x, want offset read from RAM (0x77)", cpu.NextPC)
	}

	cpu.Reset()
	cpu.AC = 0x66
	cpu.PokeROM(0, encode(opBR, brBRA, busAC, 0))
	cpu.Tick()
	if cpu.NextPC != 0x66 {
		t.Errorf("NextPC = %#x, want offset from AC (0x66)", cpu.NextPC)
	}
}

func TestROMRoundTrip(t *testing.T) {
	cpu := newTestCPU(t)
	n := cpu.LoadROM([]byte{0xAB, 0xCD, 0x12, 0x34})
	if n != 2 {
		t.Fatalf("LoadROM = %d words, want 2", n)
	}
	got := []uint16{cpu.ROMWord(0), cpu.ROMWord(1)}
	if diff := cmp.Diff([]uint16{0xABCD, 0x1234}, got); diff != "" {
		t.Errorf("rom words mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadROMOddTrailingByte(t *testing.T) {
	cpu := newTestCPU(t)
	if n := cpu.LoadROM([]byte{0xAB, 0xCD, 0x12}); n != 1 {
		t.Errorf("LoadROM = %d words, want 1 (trailing byte ignored)", n)
	}
}

func TestPCInvariant(t *testing.T) {
	cpu := newTestCPU(t)
	// Fill a chunk of ROM with branches and ALU noise and check the pc
	// invariant over a long run.
	for i := range uint16(256) {
		cpu.PokeROM(i, encode(opBR, brBRA, busD, uint8(i*7)))
	}
	for range 10000 {
		cpu.Tick()
		if int(cpu.PC) >= cpu.ROMSize() || int(cpu.NextPC) >= cpu.ROMSize() {
			t.Fatalf("pc out of rom: pc=%#x nextpc=%#x", cpu.PC, cpu.NextPC)
		}
	}
}
