package config

import (
	"gopkg.in/yaml.v3"
)

// Render returns the configuration as YAML, the same form SaveTo writes.
func (c *Config) Render() ([]byte, error) {
	return yaml.Marshal(c)
}
