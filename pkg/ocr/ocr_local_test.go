//go:build local

package ocr

import (
	"context"
	"os"
	"testing"
)

// needs OPENAI_API_BASE / OPENAI_API_KEY / OPENAI_MODEL and a sample
// image; run with: go test -tags local ./pkg/ocr
func TestOpenAIExtractText(t *testing.T) {
	raw, err := os.ReadFile("testdata/sample.png")
	if err != nil {
		t.Skipf("no sample image: %v", err)
	}

	engine := NewOpenAI()
	text, err := engine.ExtractText(context.Background(), raw)
	if err != nil {
		t.Fatalf("ExtractText err=%v", err)
	}
	t.Logf("recognized: %q", text)
	if text == "" {
		t.Fatalf("expected non-empty text")
	}
}
