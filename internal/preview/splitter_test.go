package preview

import (
	"bytes"
	"io"
	"testing"
)

func jpegFrame(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	frame = append(frame, 0xFF, 0xD9)
	return frame
}

// chunkReader yields the stream in fixed-size reads to exercise frames
// split across read boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestSplitFrames_SingleFrame(t *testing.T) {
	frame := jpegFrame(1, 2, 3)

	var got [][]byte
	err := SplitFrames(bytes.NewReader(frame), func(f []byte) {
		got = append(got, f)
	})
	if err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], frame) {
		t.Errorf("frame = %v, want %v", got[0], frame)
	}
}

func TestSplitFrames_MultipleFramesOneRead(t *testing.T) {
	stream := append(jpegFrame(1), jpegFrame(2, 2)...)
	stream = append(stream, jpegFrame(3, 3, 3)...)

	var count int
	if err := SplitFrames(bytes.NewReader(stream), func([]byte) { count++ }); err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if count != 3 {
		t.Errorf("got %d frames, want 3", count)
	}
}

func TestSplitFrames_FrameAcrossReads(t *testing.T) {
	stream := append(jpegFrame(10, 11, 12, 13), jpegFrame(20)...)

	var got [][]byte
	r := &chunkReader{data: stream, size: 3}
	if err := SplitFrames(r, func(f []byte) { got = append(got, f) }); err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
	if !bytes.Equal(got[0], jpegFrame(10, 11, 12, 13)) {
		t.Errorf("first frame = %v", got[0])
	}
	if !bytes.Equal(got[1], jpegFrame(20)) {
		t.Errorf("second frame = %v", got[1])
	}
}

func TestSplitFrames_LeadingGarbage(t *testing.T) {
	stream := append([]byte{0x00, 0x01, 0x02}, jpegFrame(5)...)

	var got [][]byte
	if err := SplitFrames(bytes.NewReader(stream), func(f []byte) { got = append(got, f) }); err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], jpegFrame(5)) {
		t.Errorf("frame = %v", got[0])
	}
}

func TestSplitFrames_IncompleteTrailingFrame(t *testing.T) {
	stream := append(jpegFrame(1), 0xFF, 0xD8, 0x42) // second frame never closes

	var count int
	if err := SplitFrames(bytes.NewReader(stream), func([]byte) { count++ }); err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d frames, want 1", count)
	}
}

func TestSplitFrames_EmitIsACopy(t *testing.T) {
	stream := append(jpegFrame(9), jpegFrame(8)...)

	var first []byte
	if err := SplitFrames(&chunkReader{data: stream, size: 4}, func(f []byte) {
		if first == nil {
			first = f
		}
	}); err != nil {
		t.Fatalf("SplitFrames: %v", err)
	}
	if !bytes.Equal(first, jpegFrame(9)) {
		t.Errorf("first frame mutated by later reads: %v", first)
	}
}
