// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dataset

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/jeranaias/ragchat/internal/model"
)

// Schema returns the JSON Schema of a JSON dataset file: an array of
// training examples.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}

	item := r.Reflect(&model.TrainingExample{})
	item.Version = ""
	item.Title = "Training example"

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Type:        "array",
		Title:       "ragchat training dataset",
		Description: "Examples submitted to the QLoRA training endpoint. Examples without an instruction or an output are skipped.",
		Items:       item,
	}
}

// SchemaJSON returns Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
