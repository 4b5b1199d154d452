// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/config"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/export"
	"github.com/jeranaias/ragchat/internal/model"
	"github.com/jeranaias/ragchat/internal/training"
)

func newTestSession(t *testing.T, svc *fakeService) (*ChatSession, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	ConfigureColors()

	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	app := &App{
		Config: cfg,
		Client: api.NewClient(&api.ClientConfig{BaseURL: srv.URL, Backend: api.Backend(cfg.API.ChatBackend)}, nil),
	}

	var out bytes.Buffer
	s := app.NewChatSession(&out, false)
	s.ExportDir = t.TempDir()
	t.Cleanup(s.Close)
	return s, &out
}

func handle(t *testing.T, s *ChatSession, line string) (bool, error) {
	t.Helper()
	return s.HandleLine(context.Background(), line)
}

func TestChatSession_MessageRoundTrip(t *testing.T) {
	svc := newFakeService()
	s, out := newTestSession(t, svc)

	cont, err := handle(t, s, "Hello")
	require.NoError(t, err)
	assert.True(t, cont)

	msgs := s.Conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi there", msgs[1].Content)
	assert.Contains(t, out.String(), "Assistant")
	assert.Contains(t, out.String(), "Hi there")
}

func TestChatSession_FailureShowsApology(t *testing.T) {
	svc := newFakeService()
	svc.chatStatus = 502
	s, out := newTestSession(t, svc)

	_, err := handle(t, s, "Hello")
	require.NoError(t, err)
	assert.Contains(t, out.String(), conversation.ErrorReply)
	assert.False(t, s.Conv.IsLoading())
}

func TestChatSession_BlankAndExit(t *testing.T) {
	svc := newFakeService()
	s, _ := newTestSession(t, svc)

	tests := []struct {
		line string
		cont bool
	}{
		{"", true},
		{"   ", true},
		{"/quit", false},
		{"/exit", false},
		{"/help", true},
	}
	for _, tt := range tests {
		cont, err := handle(t, s, tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.cont, cont, tt.line)
	}
	assert.Empty(t, svc.calls("/api/chat"))
}

func TestChatSession_SendsLineAsTyped(t *testing.T) {
	svc := newFakeService()
	s, _ := newTestSession(t, svc)

	tests := []string{"  indented code  ", "exit", "QUIT"}
	for _, line := range tests {
		cont, err := handle(t, s, line)
		require.NoError(t, err, line)
		assert.True(t, cont, line)
	}

	calls := svc.calls("/api/chat")
	require.Len(t, calls, len(tests))
	for i, line := range tests {
		assert.Equal(t, line, calls[i]["message"])
	}
	assert.Equal(t, "  indented code  ", s.Conv.Messages()[0].Content)
}

func TestChatSession_TrainingCommands(t *testing.T) {
	svc := newFakeService()
	s, out := newTestSession(t, svc)

	_, err := handle(t, s, "/train set 1 instruction Summarize  this please")
	require.NoError(t, err)
	_, err = handle(t, s, "/train set 1 o Done")
	require.NoError(t, err)
	_, err = handle(t, s, "/train add")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added example 2.")

	examples := s.Train.Examples()
	require.Len(t, examples, 2)
	assert.Equal(t, "Summarize  this please", examples[0].Instruction)
	assert.Equal(t, "Done", examples[0].Output)

	out.Reset()
	_, err = handle(t, s, "/train list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 of 2 valid")
	assert.Contains(t, out.String(), "ready")
	assert.Contains(t, out.String(), "incomplete")
	assert.Contains(t, out.String(), "Submit enabled")

	_, err = handle(t, s, "/train rm 2")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Train.Len())

	out.Reset()
	_, err = handle(t, s, "/train submit")
	require.NoError(t, err)
	assert.Contains(t, out.String(), training.StatusStarting)
	assert.Contains(t, out.String(), "✅ started")
	assert.False(t, s.Train.IsTraining())
	require.Len(t, svc.calls("/api/qlora/train"), 1)
}

func TestChatSession_SubmitWithoutValidExamples(t *testing.T) {
	svc := newFakeService()
	s, out := newTestSession(t, svc)

	_, err := handle(t, s, "/train list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Submit disabled")

	_, err = handle(t, s, "/train submit")
	require.NoError(t, err)
	assert.Contains(t, out.String(), training.WarningNoValidExamples)
	assert.False(t, s.Train.IsTraining())
	assert.Empty(t, svc.calls("/api/qlora/train"))
}

func TestChatSession_TrainErrors(t *testing.T) {
	svc := newFakeService()
	s, out := newTestSession(t, svc)

	tests := []string{
		"/train set 5 instruction x",
		"/train set one instruction x",
		"/train set 1 title x",
		"/train set 1",
		"/train rm",
		"/train frobnicate",
		"/nope",
	}
	for _, line := range tests {
		cont, err := handle(t, s, line)
		assert.True(t, cont, line)
		var usage *UsageError
		assert.ErrorAs(t, err, &usage, line)
	}

	_, err := handle(t, s, "/train rm 1")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cannot be removed")
	assert.Equal(t, 1, s.Train.Len())
}

func TestChatSession_TrainLoad(t *testing.T) {
	svc := newFakeService()
	s, out := newTestSession(t, svc)
	file := writeFile(t, "batch.jsonl", mixedExamples)

	_, err := handle(t, s, "/train load "+file)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Train.Len())
	assert.Equal(t, 1, s.Train.ValidCount())
	assert.Contains(t, out.String(), "Loaded 2 examples, 1 valid.")
}

func TestChatSession_Export(t *testing.T) {
	svc := newFakeService()
	s, _ := newTestSession(t, svc)

	_, err := handle(t, s, "/export")
	assert.ErrorIs(t, err, export.ErrEmptyTranscript)

	_, err = handle(t, s, "Hello")
	require.NoError(t, err)
	_, err = handle(t, s, "/export json")
	require.NoError(t, err)

	entries, err := os.ReadDir(s.ExportDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))

	data, err := os.ReadFile(filepath.Join(s.ExportDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hi there")
}

func TestChatSession_ClearInput(t *testing.T) {
	s, _ := newTestSession(t, newFakeService())
	s.Conv.SetInput("draft")

	_, err := handle(t, s, "/clear-input")
	require.NoError(t, err)
	assert.Empty(t, s.Conv.Input())
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    int
		wantErr bool
	}{
		{"1", 1, 0, false},
		{"3", 3, 2, false},
		{"0", 3, 0, true},
		{"4", 3, 0, true},
		{"-1", 3, 0, true},
		{"x", 3, 0, true},
	}
	for _, tt := range tests {
		got, err := parseIndex(tt.in, tt.n)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
