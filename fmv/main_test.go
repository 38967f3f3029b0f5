package fmv

import (
	"fmt"
	"os"
	"runtime"
	"testing"
)

// TestMain prints what the host probe sees so CI logs show which variants
// the dispatch tests ran against.
func TestMain(m *testing.M) {
	fmt.Printf("=== fmv capability diagnostics ===\n")
	fmt.Printf("GOOS=%s GOARCH=%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("%s=%q %s=%q %s=%q\n",
		EnvNoSIMD, os.Getenv(EnvNoSIMD),
		EnvDisable, os.Getenv(EnvDisable),
		EnvMaxLevel, os.Getenv(EnvMaxLevel))
	if c, err := HostProbe().Detect(); err == nil {
		fmt.Printf("host: %s (level %s)\n", c, BestLevel(c))
	}
	if c, err := CPUIDProbe().Detect(); err == nil {
		fmt.Printf("cpuid: %s\n", c)
	}
	fmt.Printf("==================================\n\n")

	os.Exit(m.Run())
}
