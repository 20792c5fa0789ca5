package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// SpeakerHandle plays a decoded clip through the default output device and
// implements the playback handle contract: the playhead position is derived
// from the number of frames actually handed to the device.
//
// Pause keeps the device running and feeds silence; starting and stopping the
// device per segment would add audible latency at every play request.
type SpeakerHandle struct {
	clip   *Clip
	logger *slog.Logger

	mactx  *malgo.AllocatedContext
	device *malgo.Device

	mu            sync.Mutex
	cursor        int
	playing       bool
	deviceStarted bool
}

func NewSpeakerHandle(clip *Clip, logger *slog.Logger) (*SpeakerHandle, error) {
	mactx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	h := &SpeakerHandle{
		clip:   clip,
		logger: logger,
		mactx:  mactx,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Channels = 1
	cfg.Playback.Format = malgo.FormatS16
	cfg.SampleRate = uint32(clip.SampleRate)

	device, err := malgo.InitDevice(mactx.Context, cfg, malgo.DeviceCallbacks{
		Data: h.onData,
	})
	if err != nil {
		_ = mactx.Uninit()
		mactx.Free()
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	h.device = device

	return h, nil
}

// onData feeds PCM16LE to the device, converting from the clip's float32
// samples. Past the end of the clip, or while paused, it emits silence.
func (h *SpeakerHandle) onData(pOutput, _ []byte, frameCount uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < int(frameCount); i++ {
		var s int16
		if h.playing && h.cursor < len(h.clip.Samples) {
			s = int16(h.clip.Samples[h.cursor] * 32767.0)
			h.cursor++
		}
		binary.LittleEndian.PutUint16(pOutput[2*i:], uint16(s))
	}
}

func (h *SpeakerHandle) SeekTo(t time.Duration) {
	frame := h.clip.FrameForTime(t)
	h.mu.Lock()
	h.cursor = frame
	h.mu.Unlock()
}

func (h *SpeakerHandle) Position() time.Duration {
	h.mu.Lock()
	cursor := h.cursor
	h.mu.Unlock()
	return time.Duration(cursor) * time.Second / time.Duration(h.clip.SampleRate)
}

func (h *SpeakerHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.deviceStarted {
		if err := h.device.Start(); err != nil {
			return fmt.Errorf("start playback device: %w", err)
		}
		h.deviceStarted = true
	}
	h.playing = true
	return nil
}

func (h *SpeakerHandle) Pause() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
}

// Close releases the output device. The handle must not be used afterwards.
func (h *SpeakerHandle) Close() error {
	h.device.Uninit()
	err := h.mactx.Uninit()
	h.mactx.Free()
	return err
}
