package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const settingsFile = "FakeIDE.ini"

// recordLaunch bumps the launch counter in the settings directory.
func recordLaunch(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create settings directory: %w", err)
	}
	path := filepath.Join(dir, settingsFile)
	launches := 0
	if data, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if v, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "launches="); ok {
				launches, _ = strconv.Atoi(v)
			}
		}
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read settings: %w", err)
	}
	launches++
	content := fmt.Sprintf("[General]\nlaunches=%d\n", launches)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write settings: %w", err)
	}
	return launches, nil
}
