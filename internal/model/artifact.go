package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArtifactLoad wraps failures to load a model or scaler artifact.
var ErrArtifactLoad = errors.New("model: cannot load artifact")

// LoadNetwork reads and compiles a network artifact.
func LoadNetwork(path string) (*Network, error) {
	var n Network
	if err := readJSON(path, &n); err != nil {
		return nil, err
	}
	if err := n.Compile(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, path, err)
	}
	return &n, nil
}

// LoadScaler reads a scaler artifact.
func LoadScaler(path string) (*Scaler, error) {
	var s Scaler
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, path, err)
	}
	return &s, nil
}

// Save writes the network artifact.
func (n *Network) Save(path string) error { return writeJSON(path, n) }

// Save writes the scaler artifact.
func (s *Scaler) Save(path string) error { return writeJSON(path, s) }

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactLoad, path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
