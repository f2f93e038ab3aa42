package main

import (
	"fmt"
	"io/ioutil"

	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util/testutil"

	"gopkg.in/yaml.v2"
)

// Config is tracetool's optional YAML configuration.  Flags override
// it.
type Config struct {
	Particles int                    `yaml:"particles"`
	Workers   int                    `yaml:"workers"`
	Seed      uint64                 `yaml:"seed"`
	ParamsDB  string                 `yaml:"paramsDB"`
	Logging   bool                   `yaml:"logging"`
	Args      []interface{}          `yaml:"args"`
	Kwargs    map[string]interface{} `yaml:"kwargs"`
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Particles: 100,
	}
}

// LoadConfig reads the config file (if any) over DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err = yaml.UnmarshalStrict(bs, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", filename, err)
	}
	cfg.Args = stringKeys(cfg.Args).([]interface{})
	if cfg.Kwargs != nil {
		cfg.Kwargs = stringKeys(cfg.Kwargs).(map[string]interface{})
	}
	return cfg, nil
}

// Input is the programs' call.
func (c *Config) Input() trace.Input {
	in := trace.Call(c.Args...)
	for k, v := range c.Kwargs {
		in = in.With(k, v)
	}
	return in
}

// stringKeys converts the map[interface{}]interface{}s that yaml.v2
// makes into map[string]interface{}s.
func stringKeys(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[fmt.Sprintf("%v", k)] = stringKeys(v)
		}
		return acc
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[k] = stringKeys(v)
		}
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = stringKeys(v)
		}
		return acc
	}
	return x
}

// parseArgs reads each flag value as JSON, falling back to the string
// itself.
func parseArgs(ss []string) []interface{} {
	acc := make([]interface{}, len(ss))
	for i, s := range ss {
		acc[i] = testutil.Dwimjs(s)
	}
	return acc
}
