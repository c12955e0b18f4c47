package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 480) // 10ms of 24kHz mono 16-bit samples
	out := EncodeWAV(pcm)

	require.Len(t, out, 44+len(pcm))
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, "data", string(out[36:40]))

	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[20:22]), "PCM format tag")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:24]), "mono")
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(out[24:28]), "sample rate")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[34:36]), "bit depth")
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(out[40:44]), "data size")
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]), "riff size")
}

func TestWriteFrame(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFrame(dir, 2, []byte{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audio_frame_2.wav"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 44+4)
}

func TestWriteFrameRejectsEmptyAudio(t *testing.T) {
	_, err := WriteFrame(t.TempDir(), 0, nil)
	require.Error(t, err)
}
