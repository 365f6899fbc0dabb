package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// config is the on-disk shape of the optional -config file, letting a
// caller keep a default tracker list instead of retyping it on every
// invocation. Unset fields keep their zero value and are overridden by
// whatever flags were given.
type config struct {
	Trackers []string `yaml:"trackers"`
}

func loadConfig(filename string) (*config, error) {
	c := &config{}
	b, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}
