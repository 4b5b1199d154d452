// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and training examples.
package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// TRAINING EXAMPLE
// =============================================================================

// TrainingExample is one labeled instruction/input/output triple.
type TrainingExample struct {
	Instruction string `json:"instruction" yaml:"instruction" jsonschema:"required,description=What the model should do"`
	Input       string `json:"input" yaml:"input,omitempty" jsonschema:"description=Optional input for the instruction"`
	Output      string `json:"output" yaml:"output" jsonschema:"required,description=Expected model output"`
}

// IsValid reports whether both instruction and output are non-blank.
func (e TrainingExample) IsValid() bool {
	return strings.TrimSpace(e.Instruction) != "" && strings.TrimSpace(e.Output) != ""
}

// IsBlank reports whether every field is empty.
func (e TrainingExample) IsBlank() bool {
	return e.Instruction == "" && e.Input == "" && e.Output == ""
}

// Field names an editable TrainingExample field.
type Field string

const (
	FieldInstruction Field = "instruction"
	FieldInput       Field = "input"
	FieldOutput      Field = "output"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldInstruction, FieldInput, FieldOutput}

// ParseField resolves a field name, accepting the first letter as shorthand.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instruction", "i":
		return FieldInstruction, nil
	case "input", "in":
		return FieldInput, nil
	case "output", "o", "out":
		return FieldOutput, nil
	}
	return "", fmt.Errorf("unknown field %q (want instruction, input or output)", s)
}

// Get returns the value of the named field.
func (e TrainingExample) Get(f Field) string {
	switch f {
	case FieldInstruction:
		return e.Instruction
	case FieldInput:
		return e.Input
	case FieldOutput:
		return e.Output
	}
	return ""
}

// With returns a copy of e with the named field replaced. The receiver is
// left untouched.
func (e TrainingExample) With(f Field, value string) (TrainingExample, error) {
	switch f {
	case FieldInstruction:
		e.Instruction = value
	case FieldInput:
		e.Input = value
	case FieldOutput:
		e.Output = value
	default:
		return e, fmt.Errorf("unknown field %q", f)
	}
	return e, nil
}

// FilterValid returns the valid examples in their original order.
func FilterValid(examples []TrainingExample) []TrainingExample {
	valid := make([]TrainingExample, 0, len(examples))
	for _, ex := range examples {
		if ex.IsValid() {
			valid = append(valid, ex)
		}
	}
	return valid
}

// AnyValid reports whether at least one example is valid.
func AnyValid(examples []TrainingExample) bool {
	for _, ex := range examples {
		if ex.IsValid() {
			return true
		}
	}
	return false
}
