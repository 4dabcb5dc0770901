// Package config provides the string-keyed configuration map the prognoser
// builder consumes. Maps are built programmatically or loaded from YAML
// files; every value is a list of strings coerced on access.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrConfig is returned when a required key is missing or a value is ill-typed
var ErrConfig = errors.New("invalid configuration")

// Map is a string-keyed configuration: every key holds a list of values
type Map map[string][]string

// New returns an empty configuration map
func New() Map {
	return Map{}
}

// Load reads a YAML file into a configuration map. Scalar values become
// single-element lists; sequences become lists; nested mappings are not
// supported.
func Load(path string) (Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %v: %w", path, err, ErrConfig)
	}

	m := New()
	for key, val := range doc {
		switch v := val.(type) {
		case []interface{}:
			vals := make([]string, len(v))
			for i, item := range v {
				vals[i] = fmt.Sprint(item)
			}
			m[key] = vals
		case map[string]interface{}:
			return nil, fmt.Errorf("key %q: nested mappings not supported: %w", key, ErrConfig)
		default:
			m[key] = []string{fmt.Sprint(v)}
		}
	}

	return m, nil
}

// Set stores values under key, replacing any previous values
func (m Map) Set(key string, values ...string) {
	m[key] = values
}

// Has reports whether key is present with at least one value
func (m Map) Has(key string) bool {
	return len(m[key]) > 0
}

// RequireKeys checks that all listed keys are present.
// It returns ErrConfig naming the first missing key.
func (m Map) RequireKeys(keys ...string) error {
	for _, key := range keys {
		if !m.Has(key) {
			return fmt.Errorf("missing required key %q: %w", key, ErrConfig)
		}
	}
	return nil
}

// String returns the single value stored under key
func (m Map) String(key string) (string, error) {
	if !m.Has(key) {
		return "", fmt.Errorf("missing key %q: %w", key, ErrConfig)
	}
	return m[key][0], nil
}

// Strings returns all values stored under key
func (m Map) Strings(key string) ([]string, error) {
	if !m.Has(key) {
		return nil, fmt.Errorf("missing key %q: %w", key, ErrConfig)
	}
	return m[key], nil
}

// Float64 returns the single value under key parsed as a float
func (m Map) Float64(key string) (float64, error) {
	s, err := m.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("key %q value %q: %w", key, s, ErrConfig)
	}
	return v, nil
}

// Float64s returns all values under key parsed as floats
func (m Map) Float64s(key string) ([]float64, error) {
	vals, err := m.Strings(key)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, s := range vals {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("key %q value %q: %w", key, s, ErrConfig)
		}
		out[i] = v
	}
	return out, nil
}

// Int returns the single value under key parsed as an integer
func (m Map) Int(key string) (int, error) {
	s, err := m.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("key %q value %q: %w", key, s, ErrConfig)
	}
	return v, nil
}
