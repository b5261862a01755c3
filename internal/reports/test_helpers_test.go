package reports

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"medscan-backend/internal/llm"
	"medscan-backend/internal/shared/storage/object/local"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// recordingLLM captures inputs and answers with a canned report or error.
type recordingLLM struct {
	mu     sync.Mutex
	inputs []llm.ImageInput
	reply  func(in llm.ImageInput) (string, error)
}

func (r *recordingLLM) AnalyzeImage(ctx context.Context, in llm.ImageInput) (string, error) {
	r.mu.Lock()
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()
	return r.reply(in)
}

func echoLLM() *recordingLLM {
	return &recordingLLM{reply: func(in llm.ImageInput) (string, error) {
		return "### 1. Image Type & Region\nreport for " + in.FileName, nil
	}}
}

func failingLLM(msg string) *recordingLLM {
	return &recordingLLM{reply: func(in llm.ImageInput) (string, error) {
		return "", errors.New(msg)
	}}
}

func newTestService(t *testing.T, client llm.Client) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return &Service{
		Repo:  NewMemoryRepo(),
		Store: local.New(dir),
		LLM:   client,
	}, dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return n
}
