package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/npratt/cclsmon/internal/config"
	"github.com/npratt/cclsmon/internal/workspace"
)

// Info contains connection information for a running monitor.
// It is written to daemon.json so CLI commands can find the monitor
// from any directory inside the project.
type Info struct {
	SocketPath string    `json:"socket_path"`
	PIDPath    string    `json:"pid_path"`
	LogPath    string    `json:"log_path"`
	Root       string    `json:"root"`
	StartTime  time.Time `json:"start_time"`
	PID        int       `json:"pid"`
}

// infoFile is the name of the file containing connection info.
const infoFile = "daemon.json"

// ResolvePaths converts relative paths to absolute paths using the given base directory.
// If basePath is empty, the current working directory is used.
func ResolvePaths(paths config.PathsConfig, basePath string) (config.PathsConfig, error) {
	if basePath == "" {
		var err error
		basePath, err = os.Getwd()
		if err != nil {
			return paths, fmt.Errorf("get working directory: %w", err)
		}
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(basePath, p)
	}

	return config.PathsConfig{
		Log:    resolve(paths.Log),
		Socket: resolve(paths.Socket),
		PID:    resolve(paths.PID),
	}, nil
}

// FindInfo looks for daemon.json in the project containing startDir.
func FindInfo(startDir string) (*Info, error) {
	infoPath := InfoPath(workspace.FindProjectRoot(startDir))

	info, err := ReadInfo(infoPath)
	if err != nil {
		return nil, fmt.Errorf("monitor info not found (checked %s): %w", infoPath, err)
	}
	return info, nil
}

// WriteInfo writes connection info to the specified path.
func WriteInfo(path string, info *Info) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal monitor info: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write monitor info: %w", err)
	}

	return nil
}

// ReadInfo reads connection info from the specified path.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monitor info: %w", err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal monitor info: %w", err)
	}

	return &info, nil
}

// RemoveInfo removes the daemon.json file.
func RemoveInfo(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove monitor info: %w", err)
	}
	return nil
}

// InfoPath returns the path of daemon.json for the project at projectRoot.
func InfoPath(projectRoot string) string {
	return filepath.Join(projectRoot, config.ProjectConfigDir, infoFile)
}
