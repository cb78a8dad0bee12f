package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolUIDIsDeterministic(t *testing.T) {
	a := SymbolUID("proj", "src/main.go", "main.main")
	b := SymbolUID("proj", "src/main.go", "main.main")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestSymbolUIDDiffersByProject(t *testing.T) {
	a := SymbolUID("proj-a", "src/main.go", "main.main")
	b := SymbolUID("proj-b", "src/main.go", "main.main")
	assert.NotEqual(t, a, b)
}

func TestChunkIDStableAcrossRuns(t *testing.T) {
	hash := ContentHash("package main\n")
	a := ChunkID("proj", "main.go", 0, hash)
	b := ChunkID("proj", "main.go", 0, hash)
	assert.Equal(t, a, b)
}

func TestChunkIDChangesWithContent(t *testing.T) {
	h1 := ContentHash("hello")
	h2 := ContentHash("hellp")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, ChunkID("p", "f", 0, h1), ChunkID("p", "f", 0, h2))
}

func TestTextHashNormalizationInvariance(t *testing.T) {
	lf := []byte("line one\nline two\n")
	crlf := []byte("line one\r\nline two\r\n")
	assert.Equal(t, TextHash(lf), TextHash(crlf))
}

func TestTextHashDiffersOnRealContentChange(t *testing.T) {
	a := TextHash([]byte("hello\n"))
	b := TextHash([]byte("hellp\n"))
	assert.NotEqual(t, a, b)
}
