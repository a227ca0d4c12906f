// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

const (
	// EnvFile names an explicit config file and bypasses the search.
	EnvFile = "APIQ_CFG"
	// FileName is the file looked for in the standard locations.
	FileName = "apiq.yaml"
)

// ErrNotFound is returned when no config file could be located.
var ErrNotFound = errors.New("config file not found")

// Type is a loaded config file. Namespace, when set, is tried as a prefix
// before each plain key lookup.
type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

// Config is the process-wide config, loaded lazily by the getters.
var Config Type

// Load reads the config file and makes it the process-wide Config. The
// optional namespace is usually the subcommand name.
func Load(namespace ...string) (Type, error) {
	path, err := getConfigPath()
	if err != nil {
		return Type{}, err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return Type{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return Type{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	Config = Type{
		Source: path,
		Data:   data,
	}
	if len(namespace) > 0 {
		Config.Namespace = namespace[0]
	}

	return Config, nil
}

// get walks Data along a dotted key, first under the namespace and then at
// the root.
func (cfg *Type) get(kspec string) (any, error) {
	var candidateKeys []string
	if cfg.Namespace != "" {
		candidateKeys = append(candidateKeys, cfg.Namespace+"."+kspec)
	}
	candidateKeys = append(candidateKeys, kspec)

	for _, key := range candidateKeys {
		var current interface{} = cfg.Data

		found := true
		for _, part := range strings.Split(key, ".") {
			m, ok := current.(map[string]interface{})
			if !ok {
				found = false
				break
			}
			if current, ok = m[part]; !ok {
				found = false
				break
			}
		}

		if found {
			return current, nil
		}
	}

	return nil, fmt.Errorf("no valid path found among: %v", candidateKeys)
}

func lookup(key string) (any, error) {
	if len(Config.Data) == 0 {
		ns := Config.Namespace
		if _, err := Load(ns); err != nil {
			log.Debugf("config: %v", err)
		}
	}
	return Config.get(key)
}

// GetString returns the string at key, or the default when key is missing.
func GetString(key string, defaultValue ...string) (string, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", key)
	}

	return s, nil
}

// GetInt returns the int at key, or the default when key is missing.
func GetInt(key string, defaultValue ...int) (int, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	// YAML numbers may be unmarshaled as int/float64 depending on content.
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("value at %s is not an int", key)
	}
}

// GetBool returns the bool at key, or the default when key is missing.
func GetBool(key string, defaultValue ...bool) (bool, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return false, err
	}

	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("value at %s is not a bool", key)
	}
}

// GetStringSlice returns the list of strings at key. A scalar string is
// treated as a one-element list.
func GetStringSlice(key string, defaultValue ...[]string) ([]string, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return nil, err
	}

	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("value at %s is not a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value at %s is not a list", key)
	}
}

// GetMapSlice returns the list of maps at key, e.g. a list of nav items.
func GetMapSlice(key string) ([]map[string]interface{}, error) {
	val, err := lookup(key)
	if err != nil {
		return nil, err
	}

	list, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("value at %s is not a list", key)
	}

	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("value at %s is not a list of maps", key)
		}
		out = append(out, m)
	}
	return out, nil
}

// GetDuration returns the duration at key. Strings use time.ParseDuration
// syntax; bare numbers are seconds.
func GetDuration(key string, defaultValue ...time.Duration) (time.Duration, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaultValue) == 1 {
			return defaultValue[0], nil
		}
		return 0, err
	}

	switch v := val.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("value at %s: %w", key, err)
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("value at %s is not a duration", key)
	}
}

func getConfigPath() (string, error) {
	if path, ok := os.LookupEnv(EnvFile); ok && path != "" {
		fileInfo, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s=%s", ErrNotFound, EnvFile, path)
		}
		if fileInfo.IsDir() {
			return "", fmt.Errorf("%s=%s points to a directory", EnvFile, path)
		}
		log.Debugf("using config file: %s", path)
		return path, nil
	}

	candidates := []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fileInfo, err := os.Stat(file); err == nil && !fileInfo.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, nil
		}
	}

	return "", fmt.Errorf("%w in standard locations", ErrNotFound)
}
