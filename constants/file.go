package constants

import "strings"

// Normalized (lowercase, dot-free) extensions the tabular loader understands.
const (
	ExtCSV  = "csv"
	ExtXLSX = "xlsx"
	ExtXLS  = "xls"
)

// AllowedExtensions holds the allowed file extensions for jobs ingestion.
var AllowedExtensions = map[string]struct{}{
	ExtCSV:  {},
	ExtXLSX: {},
	ExtXLS:  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
