package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MergeBuffers concatenates audio buffers of the same container format into a
// single buffer using ffmpeg's concat demuxer with stream copy (no
// re-encoding). A single-element input is returned as-is. Each call works in a
// uniquely named temp directory so concurrent merges never collide; the
// directory is removed on every path out.
func MergeBuffers(ctx context.Context, buffers [][]byte, ext string) ([]byte, error) {
	if len(buffers) == 0 {
		return nil, fmt.Errorf("merge: no buffers")
	}
	if len(buffers) == 1 {
		return buffers[0], nil
	}

	dir := filepath.Join(os.TempDir(), "council-merge-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("merge: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var manifest strings.Builder
	for i, buf := range buffers {
		name := fmt.Sprintf("chunk-%d.%s", i, ext)
		if err := os.WriteFile(filepath.Join(dir, name), buf, 0o600); err != nil {
			return nil, fmt.Errorf("merge: write chunk %d: %w", i, err)
		}
		fmt.Fprintf(&manifest, "file '%s'\n", name)
	}
	listPath := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(listPath, []byte(manifest.String()), 0o600); err != nil {
		return nil, fmt.Errorf("merge: write manifest: %w", err)
	}

	outPath := filepath.Join(dir, "merged."+ext)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("merge: ffmpeg concat: %w: %s", err, string(out))
	}

	merged, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("merge: read output: %w", err)
	}
	return merged, nil
}
