// Package tuning hot-reloads threshold overrides from a watched YAML file.
// Overrides are sparse: only the keys present in the file move away from the
// booted configuration, and a file that fails validation leaves the previous
// settings untouched.
package tuning

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"arbiter/internal/config"
	"arbiter/internal/logger"
)

type fileConfig struct {
	Overrides map[string]any `yaml:"overrides"`
}

// Listener receives the merged configuration after a successful reload.
type Listener func(*config.Config)

// Registry owns the override file: it loads it once at startup, watches it
// for changes, and fans merged configs out to listeners.
type Registry struct {
	path string
	base *config.Config
	v    *viper.Viper

	mu        sync.RWMutex
	current   *config.Config
	loadedAt  time.Time
	listeners []Listener
}

// NewRegistry reads the override file at path over base and starts watching
// it. The file must exist; run with tuning disabled if there is none.
func NewRegistry(path string, base *config.Config) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("tuning registry requires a path")
	}
	if base == nil {
		return nil, fmt.Errorf("tuning registry requires a base config")
	}
	r := &Registry{path: path, base: base}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading tuning file failed: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("tuning reload failed, keeping previous settings: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// Current returns the most recently merged configuration.
func (r *Registry) Current() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Subscribe registers a listener and immediately delivers the current
// configuration to it.
func (r *Registry) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	current := r.current
	r.mu.Unlock()
	fn(current)
}

func (r *Registry) reload() error {
	overrides, err := readOverrideFile(r.path)
	if err != nil {
		return err
	}
	if err := validateOverrides(overrides); err != nil {
		return fmt.Errorf("tuning overrides rejected: %w", err)
	}
	merged, err := Merge(r.base, overrides)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = merged
	r.loadedAt = time.Now()
	r.mu.Unlock()
	logger.Infof("tuning: %d override sections loaded from %s", len(overrides), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	current := r.current
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb Listener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("tuning listener panic: %v", rec)
				}
			}()
			cb(current)
		}(fn)
	}
}

// Merge applies sparse overrides on top of base and validates the result.
// base is never mutated.
func Merge(base *config.Config, overrides map[string]any) (*config.Config, error) {
	merged := *base
	merged.Arbiter.Symbols = append([]string(nil), base.Arbiter.Symbols...)
	merged.Arbiter.Priority = append([]string(nil), base.Arbiter.Priority...)

	if len(overrides) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "toml",
			WeaklyTypedInput: true,
			Result:           &merged,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(overrides); err != nil {
			return nil, fmt.Errorf("merging tuning overrides failed: %w", err)
		}
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("merged tuning config invalid: %w", err)
	}
	return &merged, nil
}

func readOverrideFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning file failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing tuning file failed: %w", err)
	}
	return cfg.Overrides, nil
}

// overrideSchema restricts which sections and value types an override file
// may carry; unknown top-level sections are rejected outright.
const overrideSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "consensus": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "agents": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "swing":      {"type": "object", "additionalProperties": {"type": "number"}},
        "scalp":      {"type": "object", "additionalProperties": {"type": "number"}},
        "hedge":      {"type": "object"},
        "macro_risk": {"type": "object", "additionalProperties": {"type": "number"}}
      }
    },
    "feedback": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "arbiter": {
      "type": "object"
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func validateOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("tuning.json", strings.NewReader(overrideSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("tuning.json")
	})
	if schemaErr != nil {
		return schemaErr
	}
	// round-trip through JSON so YAML's native types match what the schema
	// validator expects
	raw, err := json.Marshal(overrides)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiledSchema.Validate(doc)
}
