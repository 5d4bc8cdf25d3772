package config

import "strings"

const SourceFileExt = ".lox"

// TrimSourceExt removes the .lox extension for display.
func TrimSourceExt(path string) string {
	return strings.TrimSuffix(path, SourceFileExt)
}

// Names the VM treats specially.
const (
	InitString  = "init"
	ScriptName  = "script"
	ThisName    = "this"
	SuperName   = "super"
	ClockNative = "clock"
)

// Process exit codes, sysexits(3) style.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// FrameSlots is how many stack slots one call frame may address with a
// one-byte operand.
const FrameSlots = 256

// Defaults for VMConfig.
const (
	DefaultFramesMax          = 64
	DefaultGCInitialThreshold = 1024 * 1024
	DefaultGCGrowFactor       = 2.0
	DefaultLogLevel           = "warning"
)

// ConfigFileNames are looked up, in order, by FindConfig.
var ConfigFileNames = []string{"loxvm.yaml", "loxvm.yml", "loxvm.toml"}

// HistoryFileName lives in the user's home directory.
const HistoryFileName = ".loxvm_history"
