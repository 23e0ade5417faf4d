package lookup

import (
	"fmt"
	"strings"

	"github.com/rendello/TTD2-Bot/internal/filetype"
	"github.com/rendello/TTD2-Bot/internal/index"
)

const (
	opcodeRefURL   = "https://www.felixcloutier.com/x86/%s"
	registerRefURL = "https://en.wikibooks.org/wiki/X86_Assembly/X86_Architecture" +
		"#General-Purpose_Registers_(GPR)_-_16-bit_naming_conventions"

	asmDocPath     = "/Doc/Asm.DD.Z"
	opcodesDocPath = "/Compiler/OpCodes.DD.Z"
)

// Symbol types with dedicated reference links.
const (
	TypeOpCode   = "OpCode"
	TypeRegister = "Reg"
)

// DefaultBaseURLs maps the known versions to their web-rendered trees.
var DefaultBaseURLs = map[string]string{
	"TempleOS_5.3": "https://tinkeros.github.io/WbTempleOS",
	"TinkerOS":     "https://tinkeros.github.io/WbGit",
}

// linker builds web links for a version. An empty base URL disables links.
type linker struct {
	base string
}

func newLinker(baseURLs map[string]string, version string) linker {
	return linker{base: strings.TrimRight(baseURLs[version], "/")}
}

// pathURL links a path entry: files point at their rendered HTML page,
// directories at the directory itself.
func (l linker) pathURL(fullPath string) string {
	if l.base == "" {
		return ""
	}
	info := filetype.Classify(fullPath)
	if !info.WebLinkable {
		return ""
	}
	if info.IsDirectory() {
		return l.base + fullPath
	}
	return l.base + filetype.StripExtensions(fullPath) + ".html"
}

// definitionURL links a symbol's definition line.
func (l linker) definitionURL(loc index.Location) string {
	if l.base == "" {
		return ""
	}
	return fmt.Sprintf("%s%s.html#l%d", l.base, filetype.StripExtensions(loc.File), loc.Line)
}

// docURL links a documentation file regardless of its type.
func (l linker) docURL(path string) string {
	if l.base == "" {
		return ""
	}
	return l.base + filetype.StripExtensions(path) + ".html"
}
