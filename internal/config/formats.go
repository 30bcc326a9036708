package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Format is one named race preset: the sport label and the points
// needed to take the race.
type Format struct {
	Name string `yaml:"name"`
	Goal int    `yaml:"goal"`
}

// Atlas holds the known race formats plus the declared default.
type Atlas struct {
	Formats []Format `yaml:"formats"`
	Default string   `yaml:"default"`
}

// LoadFormats reads and validates a format atlas from a yaml file.
func LoadFormats(path string) (Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Atlas{}, fmt.Errorf("read formats: %w", err)
	}

	var a Atlas
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Atlas{}, fmt.Errorf("parse formats: %w", err)
	}
	if err := a.validate(); err != nil {
		return Atlas{}, fmt.Errorf("formats %s: %w", path, err)
	}

	return a, nil
}

// Builtin returns the compiled-in atlas, mirroring the committed yaml.
// Commands fall back to it when no formats file is reachable from the
// working directory.
func Builtin() Atlas {
	return Atlas{
		Formats: []Format{
			{Name: "squash", Goal: 11},
			{Name: "table_tennis", Goal: 11},
			{Name: "pickleball", Goal: 11},
			{Name: "badminton", Goal: 21},
			{Name: "volleyball", Goal: 25},
			{Name: "race30", Goal: 30},
		},
		Default: "race30",
	}
}

func (a Atlas) validate() error {
	if len(a.Formats) == 0 {
		return fmt.Errorf("no formats declared")
	}
	seen := make(map[string]bool, len(a.Formats))
	for _, f := range a.Formats {
		if f.Name == "" {
			return fmt.Errorf("format with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate format %q", f.Name)
		}
		seen[f.Name] = true
		if f.Goal < 1 {
			return fmt.Errorf("format %q: goal must be at least 1, got %d", f.Name, f.Goal)
		}
	}
	if a.Default == "" {
		return fmt.Errorf("no default format declared")
	}
	if !seen[a.Default] {
		return fmt.Errorf("default format %q not declared", a.Default)
	}
	return nil
}

// Lookup resolves a format by name.
func (a Atlas) Lookup(name string) (Format, bool) {
	for _, f := range a.Formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}

// DefaultFormat returns the declared default preset.
func (a Atlas) DefaultFormat() Format {
	f, _ := a.Lookup(a.Default)
	return f
}
