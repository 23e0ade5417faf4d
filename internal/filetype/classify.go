// Package filetype maps TempleOS file names to human-readable type labels.
//
// A path's type is decided by its first extension segment ("HC" in
// "Once.HC.Z"); a trailing "Z" segment marks the file as compressed.
// Paths without any extension are directories.
package filetype

import "strings"

// DirectoryLabel is the type label of extension-less paths.
const DirectoryLabel = "Directory"

// compressedSuffix is appended to the label of compressed files.
const compressedSuffix = " (Compressed)"

// knownTypes maps an upper-cased main extension to its label.
// Only these types have web-rendered pages.
var knownTypes = map[string]string{
	"HC":  "HolyC",
	"HH":  "HolyC Header",
	"TXT": "Text",
	"GR":  "Graphics",
	"DD":  "DolDoc",
	"IN":  "Input",
	"BMP": "Windows Bitmap",
	"BIN": "Binary",
	"CPP": "C++",
}

// Info describes the type of a single path.
type Info struct {
	Label         string `json:"label"`
	MainExtension string `json:"mainExtension,omitempty"` // upper-cased, empty for directories
	WebLinkable   bool   `json:"webLinkable"`
	Compressed    bool   `json:"compressed"`
}

// IsDirectory reports whether the path had no extension.
func (i Info) IsDirectory() bool {
	return i.MainExtension == ""
}

// Classify returns the type information for path. Both full paths and bare
// basenames are accepted.
func Classify(path string) Info {
	parts := strings.Split(Basename(path), ".")
	if len(parts) < 2 {
		return Info{Label: DirectoryLabel, WebLinkable: true}
	}

	ext := strings.ToUpper(parts[1])
	info := Info{MainExtension: ext}

	if label, ok := knownTypes[ext]; ok {
		info.Label = label
		info.WebLinkable = true
	} else {
		info.Label = ext
	}

	if strings.EqualFold(parts[len(parts)-1], "Z") {
		info.Compressed = true
		info.Label += compressedSuffix
	}
	return info
}

// Basename returns the last segment of path. The root path's basename is the
// separator itself.
func Basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "/"
	}
	return path
}

// StripExtensions returns path with everything from the first dot of its
// basename removed ("/Doc/Charter.DD.Z" -> "/Doc/Charter").
func StripExtensions(path string) string {
	start := strings.LastIndexByte(path, '/') + 1
	if i := strings.IndexByte(path[start:], '.'); i >= 0 {
		return path[:start+i]
	}
	return path
}
