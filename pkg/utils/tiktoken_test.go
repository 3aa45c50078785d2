package utils

import "testing"

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter("claude-sonnet-4")
	if err != nil {
		t.Fatalf("NewTokenCounter: %v", err)
	}
	if n := tc.CountTokens(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}
	if n := tc.CountTokens("hello world"); n < 1 || n > 4 {
		t.Errorf("unexpected token count %d for 'hello world'", n)
	}
}

func TestCountTokensSimple(t *testing.T) {
	short := CountTokensSimple("Analyze authentication logic")
	long := CountTokensSimple("Analyze authentication logic in src/auth and report every JWT validation path you find")
	if short <= 0 || long <= short {
		t.Errorf("expected longer text to have more tokens: short=%d long=%d", short, long)
	}
}

func TestNilCounterFallback(t *testing.T) {
	var tc *TokenCounter
	if n := tc.CountTokens("abcdefgh"); n != 2 {
		t.Errorf("expected fallback estimate 2, got %d", n)
	}
}
