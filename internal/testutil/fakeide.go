package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BuildFakeIDE compiles the fake application under test into dir and
// returns the binary path. It is meant to be called once from TestMain.
func BuildFakeIDE(dir string) (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to determine source file path")
	}
	srcDir := filepath.Join(filepath.Dir(thisFile), "..", "fakeide")

	bin := filepath.Join(dir, "fakeide")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = srcDir
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to build fake IDE: %w\nOutput:\n%s", err, output)
	}
	if _, err := os.Stat(bin); err != nil {
		return "", fmt.Errorf("fake IDE build succeeded but binary is missing: %w", err)
	}
	return bin, nil
}
