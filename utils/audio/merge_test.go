package audio

import (
	"bytes"
	"context"
	"math"
	"os/exec"
	"testing"
)

func TestMergeBuffersSingleElement(t *testing.T) {
	buf := []byte("one lonely buffer")
	got, err := MergeBuffers(context.Background(), [][]byte{buf}, "wav")
	if err != nil {
		t.Fatalf("MergeBuffers() error: %v", err)
	}
	if !bytes.Equal(got, buf) {
		t.Error("single-element merge did not return the buffer unchanged")
	}
}

func TestMergeBuffersEmpty(t *testing.T) {
	if _, err := MergeBuffers(context.Background(), nil, "wav"); err == nil {
		t.Error("MergeBuffers() with no buffers succeeded, want error")
	}
}

func TestMergeBuffersConcatenatesWAV(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	// Two half-second silent clips at 8 kHz mono.
	clip := EncodeWAV(make([]byte, 8000), 8000, 1)
	merged, err := MergeBuffers(context.Background(), [][]byte{clip, clip}, "wav")
	if err != nil {
		t.Fatalf("MergeBuffers() error: %v", err)
	}

	got := WAVDuration(merged)
	want := 2 * WAVDuration(clip)
	if math.Abs(got-want) > 0.05 {
		t.Errorf("merged duration = %v, want ~%v", got, want)
	}
}
