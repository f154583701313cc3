package hw

import "sync/atomic"

const (
	AudioSampleRate = 44100

	audioBufferSize = 2048
	audioNumBuffers = 4

	// One-pole high-pass coefficient for DC removal.
	dcAlpha = 0.99
)

// sampleRing is a single-producer single-consumer ring of PCM samples.
// The emulation thread owns the write cursor, the host audio callback the
// read cursor; each side only loads the other's. Writes drop when full so
// unread samples are never overwritten.
type sampleRing struct {
	samples []float32
	wpos    atomic.Uint32
	rpos    atomic.Uint32
}

func (rb *sampleRing) push(s float32) {
	w := rb.wpos.Load()
	next := (w + 1) % uint32(len(rb.samples))
	if next == rb.rpos.Load() {
		return // full, drop
	}
	rb.samples[w] = s
	rb.wpos.Store(next)
}

func (rb *sampleRing) pop(out []float32) int {
	r := rb.rpos.Load()
	w := rb.wpos.Load()
	n := 0
	for r != w && n < len(out) {
		out[n] = rb.samples[r]
		r = (r + 1) % uint32(len(rb.samples))
		n++
	}
	rb.rpos.Store(r)
	return n
}

func (rb *sampleRing) available() int {
	w := rb.wpos.Load()
	r := rb.rpos.Load()
	if w >= r {
		return int(w - r)
	}
	return len(rb.samples) - int(r) + int(w)
}

// Audio derives PCM samples from the CPU's OUTX register, which holds the
// 4-bit DAC value in its upper nibble.
type Audio struct {
	cpu *CPU

	sampleRate   uint32
	cycleCounter uint32

	bias  float32
	alpha float32

	volume float32
	mute   bool

	ring sampleRing
}

// NewAudio creates an audio sampler producing samples at AudioSampleRate.
func NewAudio(cpu *CPU) *Audio {
	a := &Audio{
		cpu:        cpu,
		sampleRate: AudioSampleRate,
		alpha:      dcAlpha,
		volume:     1.0,
	}
	a.ring.samples = make([]float32, audioBufferSize*audioNumBuffers)
	return a
}

// Reset discards buffered samples and filter state. Must not run
// concurrently with ReadSamples; pause the audio device first.
func (a *Audio) Reset() {
	a.cycleCounter = 0
	a.bias = 0
	a.ring.wpos.Store(0)
	a.ring.rpos.Store(0)
	clear(a.ring.samples)
}

// SetVolume sets the output gain, clamped to [0, 1].
func (a *Audio) SetVolume(vol float32) {
	a.volume = min(max(vol, 0), 1)
}

// SetMute silences the output without stopping sample production.
func (a *Audio) SetMute(mute bool) { a.mute = mute }

// AvailableSamples returns the number of buffered samples.
func (a *Audio) AvailableSamples() int { return a.ring.available() }

// ReadSamples dequeues up to len(out) samples and returns the count
// actually read. Short reads are normal; the caller pads with silence.
// Safe to call from the host audio callback.
func (a *Audio) ReadSamples(out []float32) int {
	return a.ring.pop(out)
}

// Tick resamples OUTX down to the target rate with a phase accumulator:
// one sample is emitted every hz/sampleRate ticks on average, with no
// drift.
func (a *Audio) Tick() {
	a.cycleCounter += a.sampleRate
	for a.cycleCounter >= a.cpu.Hz {
		a.cycleCounter -= a.cpu.Hz

		raw := float32(a.cpu.OUTX>>4) / 8.0

		// DC removal: track the slow-moving bias and subtract it.
		a.bias = a.alpha*a.bias + (1-a.alpha)*raw
		sample := raw - a.bias

		sample *= a.volume
		sample = min(max(sample, -1), 1)
		if a.mute {
			sample = 0
		}

		a.ring.push(sample)
	}
}
