// Package indextest provides a small two-version dataset for tests.
package indextest

import (
	"context"
	"testing"

	"github.com/rendello/TTD2-Bot/internal/index"
)

const (
	DefaultVersion = "TempleOS_5.3"
	OtherVersion   = "TinkerOS"
)

// TempleOSPaths is a Paths.DD excerpt; directories are inferred.
var TempleOSPaths = []string{
	`$LK,"C:/Home/Adam/Notes.DD.Z"$`,
	`$LK,"C:/Doc/Charter.DD.Z"$`,
	`$LK,"C:/Doc/Asm.DD.Z"$`,
	`$LK,"C:/Demo/Graphics/WallPaperFish.HC.Z"$`,
	`$LK,"C:/Kernel/KMain.HC.Z"$`,
	`$LK,"C:/Kernel/KernelA.HH.Z"$`,
	`$LK,"C:/Misc/Font_Big.BIN"$`,
	`$LK,"C:/Misc/FontXBig.BIN"$`,
	`$LK,"C:/Misc/Logo.sprite"$`,
	``,
}

// TempleOSSymbols is a Who.DD excerpt.
var TempleOSSymbols = []string{
	`Adam                Funct Public `,
	`$LK,"DocClear",A="FL:C:/Adam/DolDoc/DocNew.HC.Z,200"$   Funct Public `,
	`$LK,"Cd",A="FL:C:/Kernel/BlkDev/DskDirB.HC.Z,120"$   Funct Public `,
	`$LK,"DirMk",A="FL:C:/Kernel/BlkDev/DskDirB.HC.Z,160"$   Funct Public `,
	`RAX                 Reg `,
	`MOV                 OpCode `,
	`$LK,"Once",A="FL:C:/Kernel/KMain.HC.Z,10"$   Funct `,
	`$LK,"sys_var",A="FL:C:/Kernel/KMain.HC.Z,14"$   Glbl Var `,
	``,
}

// TinkerOSPaths is a smaller listing for the second version.
var TinkerOSPaths = []string{
	`$LK,"C:/Doc/Charter.DD"$`,
	`$LK,"C:/Kernel/KMain.HC"$`,
}

// TinkerOSSymbols holds a symbol absent from the default version.
var TinkerOSSymbols = []string{
	`$LK,"Cd",A="FL:C:/Kernel/BlkDev/DskDirB.HC,98"$   Funct Public `,
	`$LK,"TinkerOnly",A="FL:C:/Kernel/KMain.HC,3"$   Funct Public `,
}

// Datasets returns the raw fixture datasets.
func Datasets() []index.RawDataset {
	return []index.RawDataset{
		{Version: DefaultVersion, PathLines: TempleOSPaths, SymbolLines: TempleOSSymbols},
		{Version: OtherVersion, PathLines: TinkerOSPaths, SymbolLines: TinkerOSSymbols},
	}
}

// Build builds the fixture index and closes it when the test ends.
func Build(t testing.TB) *index.Handle {
	t.Helper()
	h, err := index.Build(context.Background(), Datasets(), DefaultVersion)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}
