package preview

import (
	"bytes"
	"io"
)

// JPEG stream markers.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// maxFrameSize bounds the scan buffer so a corrupt stream cannot grow it
// without limit.
const maxFrameSize = 8 << 20

// SplitFrames reads a raw MJPEG byte stream and invokes emit once per
// complete JPEG frame. It returns when the reader hits EOF or errors.
func SplitFrames(r io.Reader, emit func(frame []byte)) error {
	buf := make([]byte, 0, 64<<10)
	chunk := make([]byte, 32<<10)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = extractFrames(buf, emit)
			if len(buf) > maxFrameSize {
				// Desynced stream. Drop everything up to the next
				// start marker, or all of it.
				if i := bytes.Index(buf[2:], jpegSOI); i >= 0 {
					buf = buf[i+2:]
				} else {
					buf = buf[:0]
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// extractFrames emits every complete SOI..EOI frame in buf and returns the
// unconsumed remainder.
func extractFrames(buf []byte, emit func(frame []byte)) []byte {
	for {
		start := bytes.Index(buf, jpegSOI)
		if start < 0 {
			return buf[:0]
		}
		end := bytes.Index(buf[start+2:], jpegEOI)
		if end < 0 {
			if start > 0 {
				copy(buf, buf[start:])
				buf = buf[:len(buf)-start]
			}
			return buf
		}
		frameEnd := start + 2 + end + 2

		frame := make([]byte, frameEnd-start)
		copy(frame, buf[start:frameEnd])
		emit(frame)

		copy(buf, buf[frameEnd:])
		buf = buf[:len(buf)-frameEnd]
	}
}
