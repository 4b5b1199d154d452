// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the remote RAG chat service.
//
// The service exposes a chat endpoint (RAG or QLoRA backed), a QLoRA training
// endpoint and a health check. All calls are single JSON round trips; there is
// no streaming and no automatic retry.
//
// # Key Types
//
//   - Client: HTTP client for the service
//   - ChatRequest / ChatResponse: chat turn with prior history
//   - TrainingRequest / TrainingResponse: fine-tuning batch with fixed hyperparameters
//   - ClientError: typed failure (transport, HTTP status, payload shape)
//
// # Usage
//
//	client := api.NewClient(&api.ClientConfig{BaseURL: "https://api.example.com"}, nil)
//	resp, err := client.Chat(ctx, api.ChatRequest{Message: "Hello"})
//	if err != nil {
//	    var cerr *api.ClientError
//	    if errors.As(err, &cerr) && cerr.Type == api.ErrTypeHTTPStatus {
//	        // non-2xx
//	    }
//	}
package api
