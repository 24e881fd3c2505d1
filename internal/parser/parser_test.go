package parser

import (
	"context"
	"testing"
)

func TestDispatch_UnknownLanguageYieldsLineCountOnly(t *testing.T) {
	p := Dispatch("yaml")
	src := []byte("a: 1\nb: 2\n")
	result, err := p.Parse(context.Background(), "config.yaml", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.LineCount != 2 {
		t.Errorf("expected line count 2, got %d", result.LineCount)
	}
	if len(result.Symbols) != 0 || len(result.Imports) != 0 {
		t.Errorf("expected zero symbols/imports for unsupported language, got %+v", result)
	}
}

func TestDispatch_EmptyFileYieldsZeroLines(t *testing.T) {
	p := Dispatch("markdown")
	result, err := p.Parse(context.Background(), "empty.md", []byte{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.LineCount != 0 {
		t.Errorf("expected 0 lines for empty file, got %d", result.LineCount)
	}
}
