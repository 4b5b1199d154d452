// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"github.com/jeranaias/ragchat/internal/model"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat and /api/qlora/chat.
type ChatRequest struct {
	Message string       `json:"message"`
	History []model.Turn `json:"history"`
}

// ChatResponse is the success body of the chat endpoints.
type ChatResponse struct {
	Response string `json:"response"`
}

// chatEnvelope detects whether "response" was present at all.
type chatEnvelope struct {
	Response *string `json:"response"`
}

// =============================================================================
// TRAINING TYPES
// =============================================================================

// Hyperparameters is the fixed configuration block sent with every training batch.
type Hyperparameters struct {
	OutputDir                 string  `json:"output_dir"`
	NumEpochs                 int     `json:"num_epochs"`
	PerDeviceTrainBatchSize   int     `json:"per_device_train_batch_size"`
	GradientAccumulationSteps int     `json:"gradient_accumulation_steps"`
	LearningRate              float64 `json:"learning_rate"`
	WarmupSteps               int     `json:"warmup_steps"`
	LoggingSteps              int     `json:"logging_steps"`
	SaveSteps                 int     `json:"save_steps"`
	MaxSeqLength              int     `json:"max_seq_length"`
}

// DefaultHyperparameters returns the constant training configuration.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		OutputDir:                 "./adapters/chat_training",
		NumEpochs:                 3,
		PerDeviceTrainBatchSize:   4,
		GradientAccumulationSteps: 4,
		LearningRate:              2e-4,
		WarmupSteps:               100,
		LoggingSteps:              10,
		SaveSteps:                 500,
		MaxSeqLength:              2048,
	}
}

// TrainingRequest is the body of POST /api/qlora/train. The hyperparameters
// are flattened next to training_data on the wire.
type TrainingRequest struct {
	TrainingData []model.TrainingExample `json:"training_data"`
	Hyperparameters
}

// TrainingResponse is the success body of the training endpoint.
type TrainingResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	OutputDir string `json:"output_dir"`
}

// trainingEnvelope detects whether "message" was present at all.
type trainingEnvelope struct {
	Status    string  `json:"status"`
	Message   *string `json:"message"`
	OutputDir string  `json:"output_dir"`
}

// =============================================================================
// HEALTH TYPES
// =============================================================================

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status               string `json:"status"`
	VectorstoreConnected bool   `json:"vectorstore_connected"`
}

// Healthy reports whether the service reported itself healthy.
func (h *HealthResponse) Healthy() bool {
	return h != nil && h.Status == "healthy"
}
