package hw

import (
	"fmt"

	"gigatron/emu/log"
	"gigatron/gt1"
)

// LoaderState is the top level state of the GT1 upload protocol.
type LoaderState uint8

//go:generate go tool stringer -type=LoaderState,frameState -output=loader_string.go

const (
	LoaderIdle LoaderState = iota
	LoaderResetWait
	LoaderMenuNav
	LoaderSyncFrame
	LoaderSending
	LoaderStartCmd
	LoaderComplete
	LoaderError
)

// frameState tracks the transmission of a single 60-byte payload frame.
type frameState uint8

const (
	frameWaitVSyncNeg frameState = iota
	frameWaitHSync1
	frameWaitHSync2
	frameSendFirstByte
	frameSendLength
	frameSendAddrLow
	frameSendAddrHigh
	frameSendPayload
	frameSendChecksum
	frameDone
)

const (
	loaderPayloadSize  = 60
	loaderStartOfFrame = 'L' // 0x4C
	loaderInitChecksum = 'g' // 0x67

	resetWaitFrames = 100
	menuDownPresses = 5
	buttonAUpTime   = 60
)

// syncWatchdogTicks aborts a load when the target produces no vertical
// sync for this many cycles (3 seconds at the stock clock), which means
// the ROM never brought up video.
const syncWatchdogTicks = 3 * DefaultHz

// Loader uploads a GT1 program into the running machine by impersonating
// a gamepad: bits are shifted into the input register in cadence with
// HSYNC, after navigating the main menu to the on-target Loader entry.
//
// The running checksum deliberately persists across frames; only the menu
// navigation exit (0) and the end of the sync frame (0x67) reseed it.
type Loader struct {
	cpu  *CPU
	prog *gt1.Program

	state LoaderState
	frame frameState

	// Current frame work area.
	firstByte uint8
	length    uint8
	addr      uint16
	payload   [loaderPayloadSize]byte

	currentByte   uint8
	bitsRemaining int
	payloadIndex  int

	currentSegment int
	segmentOffset  int

	checksum   uint8
	vsyncCount int
	idleTicks  int

	prevOut uint8
	errMsg  string
}

// NewLoader creates a loader driving cpu's input register.
func NewLoader(cpu *CPU) *Loader {
	return &Loader{cpu: cpu}
}

// Start begins uploading prog. The CPU is reset so the ROM boots into its
// main menu, which the loader then navigates. The loader keeps prog until
// Reset or the next Start.
func (l *Loader) Start(prog *gt1.Program) error {
	if prog == nil || len(prog.Segments) == 0 {
		return fmt.Errorf("no program to load")
	}

	l.prog = prog
	l.currentSegment = 0
	l.segmentOffset = 0
	l.frame = frameWaitVSyncNeg
	l.bitsRemaining = 0
	l.vsyncCount = 0
	l.idleTicks = 0
	l.checksum = 0
	l.prevOut = l.cpu.OUT
	l.errMsg = ""

	l.cpu.Reset()
	l.state = LoaderResetWait

	log.ModLoader.WithFields(log.Fields{
		"segments": len(prog.Segments),
		"bytes":    prog.TotalBytes(),
	}).Infof("gt1 upload started")
	return nil
}

// Reset cancels any upload in progress, releases the program and the input
// register. Safe to call at any time.
func (l *Loader) Reset() {
	l.prog = nil
	l.state = LoaderIdle
	l.frame = frameWaitVSyncNeg
	l.currentSegment = 0
	l.segmentOffset = 0
	l.bitsRemaining = 0
	l.checksum = 0
	l.vsyncCount = 0
	l.idleTicks = 0
	l.prevOut = 0
	l.errMsg = ""
	l.cpu.IN = 0xFF
}

// IsActive reports whether an upload is in progress. While active the
// loader owns the input register.
func (l *Loader) IsActive() bool {
	return l.state != LoaderIdle && l.state != LoaderComplete && l.state != LoaderError
}

// IsComplete reports whether the last upload finished successfully.
func (l *Loader) IsComplete() bool { return l.state == LoaderComplete }

// HasError reports whether the last upload failed.
func (l *Loader) HasError() bool { return l.state == LoaderError }

// Err returns the failure reason, or the empty string.
func (l *Loader) Err() string { return l.errMsg }

// State returns the current top-level protocol state.
func (l *Loader) State() LoaderState { return l.state }

// Progress returns the fraction of payload bytes handed to the frame
// machine, in [0, 1].
func (l *Loader) Progress() float64 {
	if l.prog == nil || len(l.prog.Segments) == 0 {
		return 0
	}
	switch l.state {
	case LoaderComplete:
		return 1
	case LoaderIdle, LoaderError:
		return 0
	}

	total, sent := 0, 0
	for i, seg := range l.prog.Segments {
		total += len(seg.Data)
		if i < l.currentSegment {
			sent += len(seg.Data)
		} else if i == l.currentSegment {
			sent += l.segmentOffset
		}
	}
	if total == 0 {
		return 0
	}
	return float64(sent) / float64(total)
}

// Edge detection against the OUT value observed at the previous tick.

func (l *Loader) vsyncPosedge() bool { return ^l.prevOut&l.cpu.OUT&OutVSync != 0 }
func (l *Loader) vsyncNegedge() bool { return l.prevOut & ^l.cpu.OUT & OutVSync != 0 }
func (l *Loader) hsyncPosedge() bool { return ^l.prevOut&l.cpu.OUT&OutHSync != 0 }

// shiftBit clocks one bit into the input register, LSB side.
func (l *Loader) shiftBit(bit bool) {
	v := l.cpu.IN << 1
	if bit {
		v |= 1
	}
	l.cpu.IN = v
}

// shiftNext shifts out the MSB of the current byte. Bits go out BEFORE the
// next HSYNC edge is awaited, never after.
func (l *Loader) shiftNext() {
	l.shiftBit(l.currentByte&0x80 != 0)
	l.currentByte <<= 1
	l.bitsRemaining--
}

// loadBits stages an MSB-aligned value for transmission and immediately
// shifts the first bit.
func (l *Loader) loadBits(value uint8, bits int) {
	l.currentByte = value
	l.bitsRemaining = bits
	l.shiftNext()
}

// sendDataBits accumulates value into the checksum, then starts sending
// its low `bits` bits, MSB first.
func (l *Loader) sendDataBits(value uint8, bits int) {
	l.checksum += value
	l.loadBits(value<<(8-bits), bits)
}

// prepareFrame stages a frame header and payload. The checksum is left
// alone: it carries over from the previous frame.
func (l *Loader) prepareFrame(firstByte uint8, addr uint16, payload []byte) {
	l.firstByte = firstByte
	l.length = uint8(len(payload))
	l.addr = addr
	clear(l.payload[:])
	copy(l.payload[:], payload)

	l.frame = frameWaitVSyncNeg
	l.bitsRemaining = 0
	l.payloadIndex = 0
}

// processFrame advances the frame sub-machine on HSYNC edges and reports
// frame completion.
func (l *Loader) processFrame() bool {
	switch l.frame {
	case frameWaitVSyncNeg:
		if l.vsyncNegedge() {
			l.frame = frameWaitHSync1
		}

	case frameWaitHSync1:
		if l.hsyncPosedge() {
			l.frame = frameWaitHSync2
		}

	case frameWaitHSync2:
		// Transmission starts on the second HSYNC after vertical sync.
		if l.hsyncPosedge() {
			l.sendDataBits(l.firstByte, 8)
			l.frame = frameSendFirstByte
		}

	case frameSendFirstByte:
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				// The on-target loader folds the start byte into its
				// checksum a second time, shifted left by six.
				l.checksum += l.firstByte << 6
				l.sendDataBits(l.length, 6)
				l.frame = frameSendLength
			}
		}

	case frameSendLength:
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				l.sendDataBits(uint8(l.addr), 8)
				l.frame = frameSendAddrLow
			}
		}

	case frameSendAddrLow:
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				l.sendDataBits(uint8(l.addr>>8), 8)
				l.frame = frameSendAddrHigh
			}
		}

	case frameSendAddrHigh:
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				l.payloadIndex = 0
				l.sendDataBits(l.payload[0], 8)
				l.frame = frameSendPayload
			}
		}

	case frameSendPayload:
		// All 60 payload positions go out, zero padded past the declared
		// length, and all of them count toward the checksum.
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				l.payloadIndex++
				if l.payloadIndex >= loaderPayloadSize {
					// The negated sum is both the trailing byte and the
					// seed carried into the next frame.
					l.checksum = -l.checksum
					l.loadBits(l.checksum, 8)
					l.frame = frameSendChecksum
				} else {
					l.sendDataBits(l.payload[l.payloadIndex], 8)
				}
			}
		}

	case frameSendChecksum:
		if l.hsyncPosedge() {
			if l.bitsRemaining > 0 {
				l.shiftNext()
			} else {
				l.frame = frameDone
				return true
			}
		}

	case frameDone:
		return true
	}
	return false
}

// setupNextDataFrame stages up to 60 contiguous bytes from the segment
// cursor. A frame never spans two segments. Returns false when all
// segments are exhausted.
func (l *Loader) setupNextDataFrame() bool {
	for l.currentSegment < len(l.prog.Segments) {
		seg := &l.prog.Segments[l.currentSegment]

		if l.segmentOffset < len(seg.Data) {
			n := min(len(seg.Data)-l.segmentOffset, loaderPayloadSize)
			addr := seg.Address + uint16(l.segmentOffset)
			l.prepareFrame(loaderStartOfFrame, addr, seg.Data[l.segmentOffset:l.segmentOffset+n])
			l.segmentOffset += n
			return true
		}

		l.currentSegment++
		l.segmentOffset = 0
	}
	return false
}

// finishSending runs after the last data frame: either send the start
// command or complete.
func (l *Loader) finishSending() {
	if l.prog.HasStartAddress() {
		l.state = LoaderStartCmd
		l.prepareFrame(loaderStartOfFrame, l.prog.StartAddress, nil)
	} else {
		l.complete()
	}
}

func (l *Loader) complete() {
	l.state = LoaderComplete
	l.cpu.IN = 0xFF
	log.ModLoader.Infof("gt1 upload complete")
}

func (l *Loader) fail(reason string) {
	l.state = LoaderError
	l.errMsg = reason
	l.cpu.IN = 0xFF
	log.ModLoader.Errorf("gt1 upload failed: %s", reason)
}

// Tick advances the loader against the post-execute CPU state. Must run
// after CPU.Tick within the same cycle.
func (l *Loader) Tick() {
	switch l.state {
	case LoaderIdle, LoaderComplete, LoaderError:
		l.prevOut = l.cpu.OUT
		return

	case LoaderResetWait:
		// Give the ROM time to boot into its menu.
		if l.vsyncPosedge() {
			l.vsyncCount++
			if l.vsyncCount >= resetWaitFrames {
				l.state = LoaderMenuNav
				l.vsyncCount = 0
			}
		}

	case LoaderMenuNav:
		// Five DOWN presses select the Loader menu entry, one A press
		// launches it, then the target needs time to enter its receive
		// loop. Button state changes at VSYNC granularity.
		if l.vsyncPosedge() {
			l.vsyncCount++
			switch {
			case l.vsyncCount <= menuDownPresses*2:
				if l.vsyncCount%2 == 1 {
					l.cpu.IN = ButtonDown ^ 0xFF
				} else {
					l.cpu.IN = 0xFF
				}
			case l.vsyncCount == menuDownPresses*2+1:
				l.cpu.IN = ButtonA ^ 0xFF
			case l.vsyncCount == menuDownPresses*2+2:
				l.cpu.IN = 0xFF
			case l.vsyncCount >= menuDownPresses*2+2+buttonAUpTime:
				// The sync frame goes out with a zeroed checksum so the
				// target's validation fails and it resynchronizes; the
				// first data frame is the first one it accepts.
				l.state = LoaderSyncFrame
				l.checksum = 0
				l.prepareFrame(0xFF, 0, nil)
			}
		}

	case LoaderSyncFrame:
		if l.processFrame() {
			l.checksum = loaderInitChecksum
			l.state = LoaderSending
			l.currentSegment = 0
			l.segmentOffset = 0
			if !l.setupNextDataFrame() {
				l.finishSending()
			}
		}

	case LoaderSending:
		if l.processFrame() {
			if !l.setupNextDataFrame() {
				l.finishSending()
			}
		}

	case LoaderStartCmd:
		if l.processFrame() {
			l.complete()
		}
	}

	if l.vsyncPosedge() {
		l.idleTicks = 0
	} else {
		l.idleTicks++
		if l.idleTicks > syncWatchdogTicks {
			l.fail("no vertical sync from target; is a ROM with video loaded?")
		}
	}

	l.prevOut = l.cpu.OUT
}
