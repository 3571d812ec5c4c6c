package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings shared by every pool command.
type Config struct {
	StoreBackend    string
	StorePath       string
	PGDSN           string
	CacheSize       int
	ConnectAttempts uint
	ConnectDelay    time.Duration
	LedgerSnapshot  string
	Journal         string
	MetricsFile     string
	Decimals        map[string]uint8
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", "file")
	v.SetDefault("store-path", "./data/pools")
	v.SetDefault("cache-size", 128)
	v.SetDefault("connect-attempts", uint(5))
	v.SetDefault("connect-delay", 500*time.Millisecond)
	v.SetDefault("ledger", "./data/ledger.json")
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	decimals, err := parseDecimals(getStringMap(v, "decimals"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		StoreBackend:    v.GetString("store"),
		StorePath:       v.GetString("store-path"),
		PGDSN:           v.GetString("pg-dsn"),
		CacheSize:       v.GetInt("cache-size"),
		ConnectAttempts: v.GetUint("connect-attempts"),
		ConnectDelay:    v.GetDuration("connect-delay"),
		LedgerSnapshot:  v.GetString("ledger"),
		Journal:         v.GetString("journal"),
		MetricsFile:     v.GetString("metrics-file"),
		Decimals:        decimals,
		LogLevel:        v.GetString("log-level"),
	}, nil
}

func parseDecimals(raw map[string]string) (map[string]uint8, error) {
	out := make(map[string]uint8, len(raw))
	for asset, value := range raw {
		d, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("decimals for %s: %w", asset, err)
		}
		out[asset] = uint8(d)
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
