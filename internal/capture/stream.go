package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"sisa/internal/camera"
)

var (
	// ErrConnect indicates the stream could not be opened. Retryable; the
	// monitor loop owns backoff and reconnection.
	ErrConnect = errors.New("failed to connect to stream")

	// ErrEndOfStream indicates the stream ended or desynced mid-read.
	// The caller should close the stream and reconnect.
	ErrEndOfStream = errors.New("end of stream")
)

// Frame is a single decoded-container frame (JPEG bytes) read from a stream.
type Frame struct {
	CameraID  string
	Data      []byte
	Seq       uint64
	Timestamp time.Time
}

// openTimeout bounds how long Open waits for the first frame before
// declaring the source unreachable.
const openTimeout = 15 * time.Second

// Stream wraps a running ffmpeg process decoding a camera source into a
// sequence of JPEG frames. The caller must Close it on every exit path.
type Stream struct {
	cameraID string
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	buf      []byte
	chunk    []byte
	seq      uint64
	pending  *Frame

	closeOnce sync.Once
	closed    chan struct{}
}

// Open resolves a camera descriptor into a readable frame stream.
// It fails with ErrConnect if the source produces no frame within the open
// timeout. Open does not retry.
func Open(cam *camera.Camera) (*Stream, error) {
	source := cam.StreamURL()

	var args []string
	switch {
	case strings.HasPrefix(source, "rtsp://"):
		args = []string{
			"-rtsp_transport", "tcp",
			"-i", source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		args = []string{
			"-i", source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	default:
		// Local device index or path (interactive viewing only; the
		// background supervisor never opens these).
		device := source
		if !strings.HasPrefix(device, "/dev/") {
			device = "/dev/video" + device
		}
		args = []string{
			"-f", "v4l2",
			"-i", device,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}

	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	// Drain stderr so ffmpeg never blocks on a full pipe.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
		}
	}()

	s := &Stream{
		cameraID: cam.ID,
		cmd:      cmd,
		stdout:   stdout,
		buf:      make([]byte, 0, 1024*1024),
		chunk:    make([]byte, 8192),
		closed:   make(chan struct{}),
	}

	// The process starts even when the source is unreachable; require a
	// first frame within the deadline to call the stream open.
	first, err := s.readFrameDeadline(openTimeout)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: no frame from %s", ErrConnect, cam.Name)
	}
	s.pending = first

	return s, nil
}

// ReadFrame returns the next decoded frame, or ErrEndOfStream when the
// source fails mid-read. It never retries; reconnecting is the caller's job.
func (s *Stream) ReadFrame() (*Frame, error) {
	if f := s.pending; f != nil {
		s.pending = nil
		return f, nil
	}

	for {
		if frame := extractJPEG(&s.buf); frame != nil {
			s.seq++
			return &Frame{
				CameraID:  s.cameraID,
				Data:      frame,
				Seq:       s.seq,
				Timestamp: time.Now(),
			}, nil
		}

		n, err := s.stdout.Read(s.chunk)
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			continue
		}
		if err != nil {
			return nil, ErrEndOfStream
		}
	}
}

// readFrameDeadline reads one frame with an overall deadline, used by Open.
func (s *Stream) readFrameDeadline(timeout time.Duration) (*Frame, error) {
	type result struct {
		frame *Frame
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		f, err := s.ReadFrame()
		ch <- result{f, err}
	}()

	select {
	case r := <-ch:
		return r.frame, r.err
	case <-time.After(timeout):
		return nil, ErrConnect
	case <-s.closed:
		return nil, ErrEndOfStream
	}
}

// Close terminates the underlying process and releases the stream handle.
// Safe to call more than once and from a different goroutine than ReadFrame;
// a concurrent ReadFrame unblocks with ErrEndOfStream.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cmd != nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.stdout.Close()
		if s.cmd != nil {
			s.cmd.Wait()
		}
	})
	return nil
}

// extractJPEG extracts one complete JPEG frame (FFD8..FFD9) from the buffer.
func extractJPEG(buffer *[]byte) []byte {
	if len(*buffer) < 4 {
		return nil
	}

	startIdx := -1
	for i := 0; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD8 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil
	}

	endIdx := -1
	for i := startIdx + 2; i < len(*buffer)-1; i++ {
		if (*buffer)[i] == 0xFF && (*buffer)[i+1] == 0xD9 {
			endIdx = i + 2
			break
		}
	}
	if endIdx == -1 {
		return nil
	}

	frame := make([]byte, endIdx-startIdx)
	copy(frame, (*buffer)[startIdx:endIdx])
	*buffer = (*buffer)[endIdx:]

	return frame
}
