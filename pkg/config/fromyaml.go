package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileDefaults is the subset of the sorted engine's recognised options
// (spec.md §4.1) that can be bootstrapped from a YAML file, mirroring the
// shape of the teacher's pkg/config.Load without its server/system sections
// — this module has no network server, so only storage options remain.
type FileDefaults struct {
	Path        string `yaml:"path"`
	SizeBytes   uint64 `yaml:"size"`
	ForceCreate bool   `yaml:"force_create"`
}

// LoadYAML reads path and returns a Config bag built from its storage
// options, the file-based counterpart to building a Config by hand. A
// missing or unreadable file (including an empty path) is returned as an
// error; no default Config is substituted.
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fd FileDefaults
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, err
	}

	cfg := New()
	if fd.Path != "" {
		cfg.PutString("path", fd.Path)
	}
	if fd.SizeBytes != 0 {
		cfg.PutUint64("size", fd.SizeBytes)
	}
	if fd.ForceCreate {
		cfg.PutInt64("force_create", 1)
	}
	return cfg, nil
}
