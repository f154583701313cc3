package hw

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"gigatron/emu/log"
)

const soundDeviceSamples = 1024

// maxQueuedBytes caps the SDL audio queue at roughly a quarter second of
// stereo float samples; past that the emulator is outrunning the device
// and queueing more only adds latency.
const maxQueuedBytes = AudioSampleRate / 4 * 2 * 4

// SoundPlayer feeds the host audio device from the Audio sampler. Samples
// are duplicated to stereo on the way out.
type SoundPlayer struct {
	dev  sdl.AudioDeviceID
	mono [soundDeviceSamples]float32
}

func NewSoundPlayer() (*SoundPlayer, error) {
	want := sdl.AudioSpec{
		Freq:     AudioSampleRate,
		Format:   sdl.AUDIO_F32SYS,
		Channels: 2,
		Samples:  soundDeviceSamples,
	}
	dev, err := sdl.OpenAudioDevice("", false, &want, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %s", err)
	}
	sdl.PauseAudioDevice(dev, false)
	return &SoundPlayer{dev: dev}, nil
}

// Pause stops or resumes playback.
func (sp *SoundPlayer) Pause(pause bool) {
	sdl.PauseAudioDevice(sp.dev, pause)
}

// QueueFrom drains the sampler into the device queue.
func (sp *SoundPlayer) QueueFrom(a *Audio) {
	for {
		n := a.ReadSamples(sp.mono[:])
		if n == 0 {
			return
		}
		if sdl.GetQueuedAudioSize(sp.dev) > maxQueuedBytes {
			continue // drop, the device is behind
		}

		stereo := make([]float32, n*2)
		for i, s := range sp.mono[:n] {
			stereo[i*2] = s
			stereo[i*2+1] = s
		}
		buf := unsafe.Slice((*byte)(unsafe.Pointer(&stereo[0])), len(stereo)*4)
		if err := sdl.QueueAudio(sp.dev, buf); err != nil {
			log.ModSound.Debugf("failed to queue audio: %v", err)
			return
		}
	}
}

func (sp *SoundPlayer) Close() {
	sdl.CloseAudioDevice(sp.dev)
}
