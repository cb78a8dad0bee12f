package discover

import (
	"bytes"
	"unicode/utf8"

	"github.com/veracity-dev/ess/internal/model"
)

// sniffWindow is the number of leading bytes inspected for binary
// content, per spec §4.1 ("the first 8 KiB").
const sniffWindow = 8 * 1024

// extensionTable is the closed, table-driven classification of file
// extensions into categories and languages. Classification never
// depends on anything but this table plus the binary sniff.
var extensionTable = map[string]struct {
	Category model.Category
	Language string
}{
	".go":    {model.CategoryCode, "go"},
	".py":    {model.CategoryCode, "python"},
	".js":    {model.CategoryCode, "javascript"},
	".jsx":   {model.CategoryCode, "javascript"},
	".ts":    {model.CategoryCode, "typescript"},
	".tsx":   {model.CategoryCode, "typescript"},
	".java":  {model.CategoryCode, "java"},
	".rb":    {model.CategoryCode, "ruby"},
	".rs":    {model.CategoryCode, "rust"},
	".c":     {model.CategoryCode, "c"},
	".h":     {model.CategoryCode, "c"},
	".cpp":   {model.CategoryCode, "cpp"},
	".hpp":   {model.CategoryCode, "cpp"},
	".md":    {model.CategoryDoc, ""},
	".mdx":   {model.CategoryDoc, ""},
	".rst":   {model.CategoryDoc, ""},
	".txt":   {model.CategoryDoc, ""},
	".yaml":  {model.CategoryConfig, ""},
	".yml":   {model.CategoryConfig, ""},
	".toml":  {model.CategoryConfig, ""},
	".json":  {model.CategoryConfig, ""},
	".ini":   {model.CategoryConfig, ""},
	".env":   {model.CategoryConfig, ""},
	".csv":   {model.CategoryData, ""},
	".tsv":   {model.CategoryData, ""},
	".sql":   {model.CategoryData, ""},
	".dockerfile": {model.CategoryInfra, ""},
	".tf":    {model.CategoryInfra, ""},
	".proto": {model.CategoryInfra, ""},
}

// ClassifyExtension returns the category and language for a file
// extension (including the leading dot), falling back to
// CategoryData for anything not in the closed table.
func ClassifyExtension(ext string) (model.Category, string) {
	if entry, ok := extensionTable[ext]; ok {
		return entry.Category, entry.Language
	}
	return model.CategoryData, ""
}

// SniffBinary decides whether raw content should be treated as
// binary: a null byte or invalid UTF-8 within the first 8 KiB.
func SniffBinary(raw []byte) bool {
	window := raw
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	if bytes.IndexByte(window, 0) >= 0 {
		return true
	}
	return !utf8.Valid(window)
}
