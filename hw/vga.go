package hw

import "image"

// VGA timing, in 25.175MHz-equivalent pixel units. The Gigatron emits one
// pixel per CPU clock, each spanning 4 VGA columns.
const (
	VGAWidth  = 640
	VGAHeight = 480

	vgaHBackPorch = 48
	vgaVBackPorch = 34
)

// VGA reconstructs the video signal from the CPU's OUT register. Raster
// position is derived purely from falling sync edges; pixel color from the
// low six bits while both syncs are high.
type VGA struct {
	cpu    *CPU
	pixels []byte // RGBA, VGAWidth*VGAHeight*4

	row        int
	col        int // in VGA columns, advances 4 per tick
	pixelIndex int

	prevOut       uint8
	frameCount    uint32
	frameComplete bool
}

// NewVGA creates a VGA unit observing cpu. The framebuffer starts out
// opaque black.
func NewVGA(cpu *CPU) *VGA {
	v := &VGA{
		cpu:    cpu,
		pixels: make([]byte, VGAWidth*VGAHeight*4),
	}
	for i := 3; i < len(v.pixels); i += 4 {
		v.pixels[i] = 0xFF
	}
	v.Reset()
	return v
}

// Reset rewinds the raster position. Framebuffer content is kept.
func (v *VGA) Reset() {
	v.row = 0
	v.col = 0
	v.pixelIndex = 0
	v.prevOut = 0
	v.frameComplete = false
}

// Framebuffer exposes the RGBA pixel buffer. The returned slice is owned
// by the VGA unit and is only mutated on the emulation thread.
func (v *VGA) Framebuffer() []byte { return v.pixels }

// Image wraps the framebuffer in an image.RGBA without copying.
func (v *VGA) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    v.pixels,
		Stride: VGAWidth * 4,
		Rect:   image.Rect(0, 0, VGAWidth, VGAHeight),
	}
}

// FrameCount returns the number of completed frames.
func (v *VGA) FrameCount() uint32 { return v.frameCount }

// FrameReady reports whether a frame completed since the last call, and
// clears the flag.
func (v *VGA) FrameReady() bool {
	ready := v.frameComplete
	v.frameComplete = false
	return ready
}

// ColorToRGB expands a 6-bit RRGGBB color into 8-bit channels by bit
// replication (0, 0x55, 0xAA, 0xFF).
func ColorToRGB(color uint8) (r, g, b uint8) {
	r = (color >> 4 & 3) * 0x55
	g = (color >> 2 & 3) * 0x55
	b = (color & 3) * 0x55
	return r, g, b
}

// Tick observes the post-execute CPU state for one clock cycle.
func (v *VGA) Tick() {
	out := v.cpu.OUT
	falling := v.prevOut & ^out

	if falling&OutVSync != 0 {
		v.row = 0
		v.pixelIndex = 0
		v.frameComplete = true
		v.frameCount++
	}
	if falling&OutHSync != 0 {
		v.col = 0
		v.row++
	}
	v.prevOut = out

	// No pixels during blanking.
	if out&(OutVSync|OutHSync) == OutVSync|OutHSync &&
		v.row >= vgaVBackPorch && v.row < vgaVBackPorch+VGAHeight &&
		v.col >= vgaHBackPorch && v.col < vgaHBackPorch+VGAWidth {

		r, g, b := ColorToRGB(out & 0x3F)
		px := v.pixels
		idx := v.pixelIndex
		for range 4 {
			px[idx+0] = r
			px[idx+1] = g
			px[idx+2] = b
			px[idx+3] = 0xFF
			idx += 4
		}
		v.pixelIndex = idx
	}

	v.col += 4
}
