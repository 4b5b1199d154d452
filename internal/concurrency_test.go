// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal contains race detection tests that cross package lines.
//
// Run with: go test -race -v ./internal/...
//
// The controllers are driven from tea.Cmd goroutines in the TUI and from
// library callers directly, so their state must hold up under concurrent use.
package internal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/config"
	"github.com/jeranaias/ragchat/internal/conversation"
	"github.com/jeranaias/ragchat/internal/journal"
	"github.com/jeranaias/ragchat/internal/model"
	"github.com/jeranaias/ragchat/internal/training"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 50
	// Number of iterations per goroutine
	raceIterations = 20
)

// slowService answers after a short delay so calls overlap.
type slowService struct {
	delay time.Duration
	chats atomic.Int64
	train atomic.Int64
}

func (s *slowService) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	s.chats.Add(1)
	time.Sleep(s.delay)
	return &api.ChatResponse{Response: "echo: " + req.Message}, nil
}

func (s *slowService) Train(ctx context.Context, req api.TrainingRequest) (*api.TrainingResponse, error) {
	s.train.Add(1)
	time.Sleep(s.delay)
	return &api.TrainingResponse{Status: "success", Message: "started"}, nil
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConcurrency_ConfigGlobalAccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetGlobalForTesting()
	defer config.ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				cfg := config.Global()
				if cfg != nil {
					_ = cfg.API.BaseURL
					_ = cfg.Training.ResetDelay
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations/4; j++ {
				config.SetGlobal(config.Default())
			}
		}()
	}
	wg.Wait()

	assert.NotNil(t, config.Global())
}

// =============================================================================
// CONVERSATION
// =============================================================================

func TestConcurrency_ConversationSubmit(t *testing.T) {
	svc := &slowService{delay: time.Millisecond}
	ctrl := conversation.New(svc, nil)

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if _, ok := ctrl.Submit(context.Background(), "hello"); ok {
					accepted.Add(1)
				}
				_ = ctrl.Messages()
				_ = ctrl.IsLoading()
			}
		}()
	}
	wg.Wait()

	n := int(accepted.Load())
	require.Positive(t, n)
	assert.EqualValues(t, n, svc.chats.Load())
	assert.False(t, ctrl.IsLoading())

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2*n)
	for i, m := range msgs {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		assert.Equal(t, want, m.Role, "message %d", i)
	}
}

// =============================================================================
// TRAINING
// =============================================================================

func TestConcurrency_TrainingBeginIsExclusive(t *testing.T) {
	svc := &slowService{}
	ctrl := training.New(svc, training.Options{ResetDelay: time.Hour}, nil)
	defer ctrl.Close()
	require.NoError(t, ctrl.UpdateField(0, model.FieldInstruction, "Summarize"))
	require.NoError(t, ctrl.UpdateField(0, model.FieldOutput, "Done"))

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		winners []*training.Submission
		busy    atomic.Int64
	)
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sub, err := ctrl.Begin()
			switch {
			case err == nil:
				mu.Lock()
				winners = append(winners, sub)
				mu.Unlock()
			case errors.Is(err, training.ErrTrainingInProgress):
				busy.Add(1)
			default:
				t.Errorf("unexpected Begin error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.EqualValues(t, raceConcurrency-1, busy.Load())
	assert.True(t, ctrl.IsTraining())

	res := ctrl.Finish(winners[0], ctrl.Send(context.Background(), winners[0]))
	assert.True(t, res.OK())
	assert.False(t, ctrl.IsTraining())
	assert.EqualValues(t, 1, svc.train.Load())
}

func TestConcurrency_TrainingEditsWhileSubmitting(t *testing.T) {
	svc := &slowService{delay: time.Millisecond}
	ctrl := training.New(svc, training.Options{ResetDelay: time.Hour}, nil)
	defer ctrl.Close()

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				switch (idx + j) % 5 {
				case 0:
					ctrl.AddEntry()
				case 1:
					ctrl.RemoveEntry(ctrl.Len() - 1)
				case 2:
					err := ctrl.UpdateField(0, model.FieldInstruction, "Summarize")
					if err != nil && !errors.Is(err, training.ErrLocked) && !errors.Is(err, training.ErrIndexOutOfRange) {
						t.Errorf("UpdateField: %v", err)
					}
					_ = ctrl.UpdateField(0, model.FieldOutput, "Done")
				case 3:
					_, _ = ctrl.Start(context.Background())
				default:
					_ = ctrl.Examples()
					_, _ = ctrl.Status()
					_ = ctrl.ValidCount()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, ctrl.IsTraining())
	assert.GreaterOrEqual(t, ctrl.Len(), 1)
}

// =============================================================================
// JOURNAL
// =============================================================================

func TestConcurrency_JournalRecord(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	const writers, perWriter = 10, 5
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				res := training.Result{
					ExampleCount: j + 1,
					Response:     &api.TrainingResponse{Message: "started"},
					Status:       "✅ started",
					Kind:         training.StatusSuccess,
				}
				if _, err := store.Record(context.Background(), journal.EntryFromResult(res)); err != nil {
					t.Errorf("Record: %v", err)
				}
				if _, err := store.List(context.Background(), 3); err != nil {
					t.Errorf("List: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, n)
}
