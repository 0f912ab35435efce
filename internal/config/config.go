// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the compiler's JSON (or YAML) configuration file
// into a compilerOptions record, per spec.md §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CompilerOptions is the recognized `compilerOptions` record from spec.md
// §6: target, optimization level, program-exit behavior (default "loop"),
// and a glob list of files to include.
type CompilerOptions struct {
	Target       string   `json:"target" yaml:"target"`
	Optimization string   `json:"optimization" yaml:"optimization"`
	ExitBehavior string   `json:"exitBehavior" yaml:"exitBehavior"`
	Include      []string `json:"include" yaml:"include"`
}

// File is the top-level document shape: a single `compilerOptions` key.
type File struct {
	CompilerOptions CompilerOptions `json:"compilerOptions" yaml:"compilerOptions"`
}

var knownKeys = map[string]bool{
	"target": true, "optimization": true, "exitBehavior": true, "include": true,
}

// Load reads path (JSON by extension, or `.yaml`/`.yml` per SPEC_FULL.md's
// supplemental alternate format) into a CompilerOptions, applying the
// documented default `exitBehavior: "loop"` and logging one warning per
// unrecognized key under `compilerOptions`, per spec.md §6 ("unknown keys
// are ignored with a warning").
func Load(path string, log *logrus.Logger) (CompilerOptions, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return CompilerOptions{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	var file File

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		var rawYAML map[string]any
		if err := yaml.Unmarshal(data, &rawYAML); err != nil {
			return CompilerOptions{}, fmt.Errorf("parsing yaml config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return CompilerOptions{}, fmt.Errorf("decoding yaml config %s: %w", path, err)
		}
		warnUnknownKeysYAML(rawYAML, log)
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return CompilerOptions{}, fmt.Errorf("parsing json config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return CompilerOptions{}, fmt.Errorf("decoding json config %s: %w", path, err)
		}
		warnUnknownKeysJSON(raw, log)
	}

	opts := file.CompilerOptions
	if opts.ExitBehavior == "" {
		opts.ExitBehavior = "loop"
	}
	return opts, nil
}

func warnUnknownKeysJSON(raw map[string]json.RawMessage, log *logrus.Logger) {
	inner, ok := raw["compilerOptions"]
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(inner, &fields); err != nil {
		return
	}
	for key := range fields {
		if !knownKeys[key] {
			log.Warnf("config: unrecognized compilerOptions key %q ignored", key)
		}
	}
}

func warnUnknownKeysYAML(raw map[string]any, log *logrus.Logger) {
	inner, ok := raw["compilerOptions"]
	if !ok {
		return
	}
	fields, ok := inner.(map[string]any)
	if !ok {
		return
	}
	for key := range fields {
		if !knownKeys[key] {
			log.Warnf("config: unrecognized compilerOptions key %q ignored", key)
		}
	}
}
