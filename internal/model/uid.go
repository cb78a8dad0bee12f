package model

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// truncate16 returns the first 16 hex characters of a hash, the width
// used throughout the spec for uid/chunk_id values.
func truncate16(sum []byte) string {
	full := hex.EncodeToString(sum)
	if len(full) < 16 {
		return full
	}
	return full[:16]
}

// SymbolUID computes the content-deterministic identifier for a code
// entity: SHA256(project ":" path ":" qualified_name)[:16].
func SymbolUID(project, path, qualifiedName string) string {
	h := sha256.Sum256([]byte(project + ":" + path + ":" + qualifiedName))
	return truncate16(h[:])
}

// ChunkID computes the content-deterministic identifier for a chunk:
// SHA256(project ":" path ":" chunk_index ":" content_hash)[:16].
// Identical content at the same (path, index) always yields the same
// id (invariant I3).
func ChunkID(project, path string, index int, contentHash string) string {
	h := sha256.Sum256([]byte(project + ":" + path + ":" + strconv.Itoa(index) + ":" + contentHash))
	return truncate16(h[:])
}

// FileHash is the provenance file hash: SHA1 of the raw bytes.
func FileHash(raw []byte) string {
	h := sha1.Sum(raw)
	return hex.EncodeToString(h[:])
}

// NormalizeText applies the spec's cross-platform text normalization:
// CRLF -> LF, then any remaining lone CR -> LF, no other content
// change. It must run before any content
// hashing (invariant I5).
func NormalizeText(raw []byte) string {
	s := string(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// TextHash is the provenance text hash: SHA256 of the normalized text.
// Two byte sequences differing only in line-ending style produce the
// same hash (the normalization-invariance property in spec §8).
func TextHash(raw []byte) string {
	normalized := NormalizeText(raw)
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// ContentHash is the SHA256 of arbitrary chunk text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// FileUID computes the deterministic identifier for a File node:
// SHA256(project ":file:" path)[:16]. Files are identified by path alone
// (not content) so that re-ingestion of a changed file mutates the
// same node rather than creating a new one.
func FileUID(project, path string) string {
	h := sha256.Sum256([]byte(project + ":file:" + path))
	return truncate16(h[:])
}

// DocumentUID computes the deterministic identifier for a Document node.
func DocumentUID(project, path string) string {
	h := sha256.Sum256([]byte(project + ":doc:" + path))
	return truncate16(h[:])
}
