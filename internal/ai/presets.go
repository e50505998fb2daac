package ai

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultFiles embed.FS

const (
	minDepth = 1
	maxDepth = 20
	minSkill = 0
	maxSkill = 20
)

// Preset is one named engine strength.
type Preset struct {
	Name           string
	Depth          int
	SkillLevel     int
	MoveTimeMillis int
}

type presetSpec struct {
	Depth          int `yaml:"depth"`
	SkillLevel     int `yaml:"skill_level"`
	MoveTimeMillis int `yaml:"move_time_ms"`
}

type presetFile struct {
	Presets map[string]presetSpec `yaml:"presets"`
}

// Catalog holds the difficulty presets, loaded from embedded defaults and an
// optional override file. Out-of-range values are clamped, not rejected, so a
// sloppy override file degrades gracefully.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]Preset
}

// NewCatalog loads the embedded presets and then applies overridePath when
// non-empty. Override entries replace same-named defaults wholesale.
func NewCatalog(overridePath string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]Preset)}

	raw, err := fs.ReadFile(defaultFiles, "presets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded presets: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, fmt.Errorf("parse embedded presets: %w", err)
	}

	if strings.TrimSpace(overridePath) != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read preset overrides: %w", err)
		}
		if err := c.applyYAML(raw); err != nil {
			return nil, fmt.Errorf("parse preset overrides: %w", err)
		}
	}
	return c, nil
}

func (c *Catalog) applyYAML(raw []byte) error {
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, spec := range file.Presets {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		c.data[key] = Preset{
			Name:           key,
			Depth:          clamp(spec.Depth, minDepth, maxDepth),
			SkillLevel:     clamp(spec.SkillLevel, minSkill, maxSkill),
			MoveTimeMillis: max(spec.MoveTimeMillis, 0),
		}
	}
	return nil
}

// Lookup resolves a preset by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	preset, ok := c.data[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown difficulty preset %q (have: %s)",
			name, strings.Join(c.namesLocked(), ", "))
	}
	return preset, nil
}

// Names lists the available presets, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namesLocked()
}

func (c *Catalog) namesLocked() []string {
	names := make([]string, 0, len(c.data))
	for name := range c.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
