// Package audio writes synthesized narration to disk in the fixed
// format the render collaborator expects: one WAV file per scene,
// audio_frame_<index>.wav, 24 kHz mono 16-bit PCM.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	SampleRate    = 24000
	NumChannels   = 1
	BitsPerSample = 16
)

// FrameFileName returns the well-known narration filename for a scene
// index. The index must match the cue statement inside the compiled
// scene source.
func FrameFileName(index int) string {
	return fmt.Sprintf("audio_frame_%d.wav", index)
}

// WriteFrame writes raw PCM samples as a WAV file for the given scene
// index inside dir and returns the full path.
func WriteFrame(dir string, index int, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("no audio samples for frame %d", index)
	}
	path := filepath.Join(dir, FrameFileName(index))
	if err := os.WriteFile(path, EncodeWAV(pcm), 0o644); err != nil {
		return "", fmt.Errorf("write narration frame %d: %w", index, err)
	}
	return path, nil
}

// EncodeWAV wraps raw 16-bit mono PCM in a RIFF/WAVE header.
func EncodeWAV(pcm []byte) []byte {
	const headerSize = 44
	byteRate := SampleRate * NumChannels * BitsPerSample / 8
	blockAlign := NumChannels * BitsPerSample / 8

	var b bytes.Buffer
	b.Grow(headerSize + len(pcm))

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(headerSize-8+len(pcm)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16)) // PCM chunk size
	binary.Write(&b, binary.LittleEndian, uint16(1))  // PCM format
	binary.Write(&b, binary.LittleEndian, uint16(NumChannels))
	binary.Write(&b, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(byteRate))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(BitsPerSample))

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)

	return b.Bytes()
}
