package agent

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is one entry of the agents YAML configuration (spec §6): a name for
// logging, the TCP port to bind, and the Bernoulli success probability used
// on PREPARE.
type Spec struct {
	Name        string  `yaml:"name"`
	Port        uint16  `yaml:"port"`
	SuccessRate float64 `yaml:"successrate"`
}

// LoadConfig reads the top-level YAML sequence of agent specs.
func LoadConfig(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}
