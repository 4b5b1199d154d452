// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dataset reads batches of training examples from files so they can
// be submitted without typing them into the panel.
//
// Three layouts are accepted:
//   - JSON: an array of examples, or an object with a "training_data" array
//   - JSONL: one example object per line; blank lines are skipped
//   - YAML: a sequence of examples, or a mapping with a "training_data" sequence
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ragchat/internal/model"
)

// Format names a dataset file layout.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ErrEmpty is returned when a file holds no examples at all.
var ErrEmpty = errors.New("dataset contains no examples")

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 * 1024 * 1024

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("cannot tell dataset format from %q (use .json, .jsonl or .yaml)", filepath.Base(path))
}

// Load reads all examples from path. Invalid examples are returned as well;
// use Summarize or model.FilterValid to inspect them.
func Load(path string) ([]model.TrainingExample, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	examples, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return examples, nil
}

// Decode reads examples in the given format.
func Decode(r io.Reader, format Format) ([]model.TrainingExample, error) {
	var (
		examples []model.TrainingExample
		err      error
	)

	switch format {
	case FormatJSON:
		examples, err = decodeJSON(r)
	case FormatJSONL:
		examples, err = decodeJSONL(r)
	case FormatYAML:
		examples, err = decodeYAML(r)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, ErrEmpty
	}
	return examples, nil
}

// wrapped is the object form, matching the training request body.
type wrapped struct {
	TrainingData []model.TrainingExample `json:"training_data" yaml:"training_data"`
}

func decodeJSON(r io.Reader) ([]model.TrainingExample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	if data[0] == '{' {
		var w wrapped
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		return w.TrainingData, nil
	}

	var examples []model.TrainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return examples, nil
}

func decodeJSONL(r io.Reader) ([]model.TrainingExample, error) {
	var examples []model.TrainingExample

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var ex model.TrainingExample
		if err := json.Unmarshal(text, &ex); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return examples, nil
}

func decodeYAML(r io.Reader) ([]model.TrainingExample, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		var examples []model.TrainingExample
		if err := root.Decode(&examples); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		return examples, nil
	case yaml.MappingNode:
		var w wrapped
		if err := root.Decode(&w); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
		return w.TrainingData, nil
	}
	return nil, fmt.Errorf("decode YAML: expected a sequence or a mapping with training_data")
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary describes how many examples in a batch would be submitted.
type Summary struct {
	Total int
	Valid int
	// Skipped holds the zero-based indexes of examples missing an
	// instruction or an output.
	Skipped []int
}

// Summarize classifies examples the same way a submission filters them.
func Summarize(examples []model.TrainingExample) Summary {
	s := Summary{Total: len(examples)}
	for i, ex := range examples {
		if ex.IsValid() {
			s.Valid++
		} else {
			s.Skipped = append(s.Skipped, i)
		}
	}
	return s
}
