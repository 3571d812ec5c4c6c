package config

import "github.com/spf13/pflag"

// ScenarioConfig holds configuration for the run command.
type ScenarioConfig struct {
	Config
	Script            string
	Checkpoint        string
	CheckpointEnabled bool
	Parallelism       int
	Results           string
}

// LoadScenario merges config file, environment variables, and flags into
// ScenarioConfig.
func LoadScenario(cfgFile string, flags *pflag.FlagSet) (ScenarioConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ScenarioConfig{}, err
	}
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("parallelism", 8)

	base, err := fromViper(v)
	if err != nil {
		return ScenarioConfig{}, err
	}

	return ScenarioConfig{
		Config:            base,
		Script:            v.GetString("script"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		Parallelism:       v.GetInt("parallelism"),
		Results:           v.GetString("results"),
	}, nil
}
