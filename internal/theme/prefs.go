package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPrefsPath is where preferences live unless configured otherwise.
const DefaultPrefsPath = "~/.config/shelf/prefs.toml"

// Prefs is the on-disk preference file.
type Prefs struct {
	Theme Name `toml:"theme"`
}

// Load reads preferences. A missing, unreadable or invalid file yields System.
func Load(path string) Prefs {
	prefs := Prefs{Theme: System}

	resolved, err := expandPath(path)
	if err != nil {
		return prefs
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return prefs
	}
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Prefs{Theme: System}
	}
	if _, err := Parse(string(prefs.Theme)); err != nil {
		prefs.Theme = System
	}
	return prefs
}

// Save writes preferences, creating the directory as needed.
func Save(path string, p Prefs) error {
	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultPrefsPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	return filepath.Abs(trimmed)
}

// Manager applies theme changes and persists them.
type Manager struct {
	path   string
	detect Detector
	prefs  Prefs
}

// NewManager loads preferences from path. A nil detect uses TerminalDetector.
func NewManager(path string, detect Detector) *Manager {
	if detect == nil {
		detect = TerminalDetector
	}
	return &Manager{path: path, detect: detect, prefs: Load(path)}
}

// Current returns the stored preference.
func (m *Manager) Current() Name {
	return m.prefs.Theme
}

// Resolved returns the theme actually shown.
func (m *Manager) Resolved() Name {
	return Resolve(m.prefs.Theme, m.detect)
}

// Palette returns the palette of the resolved theme.
func (m *Manager) Palette() Palette {
	return PaletteFor(m.Resolved())
}

// Set stores a preference.
func (m *Manager) Set(n Name) error {
	if _, err := Parse(string(n)); err != nil {
		return err
	}
	m.prefs.Theme = n
	return Save(m.path, m.prefs)
}

// Toggle advances from the resolved theme and stores the result.
func (m *Manager) Toggle() (Name, error) {
	next := Next(m.Resolved())
	return next, m.Set(next)
}
