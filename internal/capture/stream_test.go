package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func jpegFrame(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestExtractJPEG(t *testing.T) {
	frame := jpegFrame(0x01, 0x02, 0x03)

	t.Run("complete frame", func(t *testing.T) {
		buf := append([]byte{}, frame...)
		got := extractJPEG(&buf)
		assert.Equal(t, frame, got)
		assert.Empty(t, buf)
	})

	t.Run("leading garbage is skipped", func(t *testing.T) {
		buf := append([]byte{0x00, 0x11, 0x22}, frame...)
		got := extractJPEG(&buf)
		assert.Equal(t, frame, got)
	})

	t.Run("trailing bytes stay buffered", func(t *testing.T) {
		buf := append(append([]byte{}, frame...), 0xFF, 0xD8, 0xAA)
		got := extractJPEG(&buf)
		assert.Equal(t, frame, got)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xAA}, buf)
	})

	t.Run("two frames extracted in order", func(t *testing.T) {
		second := jpegFrame(0x09)
		buf := append(append([]byte{}, frame...), second...)

		assert.Equal(t, frame, extractJPEG(&buf))
		assert.Equal(t, second, extractJPEG(&buf))
		assert.Nil(t, extractJPEG(&buf))
	})

	t.Run("incomplete frame", func(t *testing.T) {
		buf := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03}
		assert.Nil(t, extractJPEG(&buf))
		assert.Len(t, buf, 5, "partial data stays buffered")
	})

	t.Run("no start marker", func(t *testing.T) {
		buf := []byte{0x00, 0x01, 0x02, 0x03}
		assert.Nil(t, extractJPEG(&buf))
	})

	t.Run("too short", func(t *testing.T) {
		buf := []byte{0xFF, 0xD8}
		assert.Nil(t, extractJPEG(&buf))
	})
}
