// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package training owns the editable list of fine-tuning examples and the
// lifecycle of submitting them to the QLoRA training endpoint.
//
// Like the conversation controller, a submission runs in three phases:
// Begin validates and sets the training flag, Send performs the HTTP call
// without touching state, and Finish records the outcome. Start runs all
// three. After a successful submission a one-shot timer owned by the
// controller resets the panel.
package training

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/logging"
	"github.com/jeranaias/ragchat/internal/model"
)

// User-facing texts.
const (
	WarningNoValidExamples = "At least one training example is required."
	StatusStarting         = "Starting training..."
	FallbackFailure        = "Failed to start training"

	successPrefix = "✅ "
	failurePrefix = "❌ Error: "
)

// DefaultResetDelay is how long a success status stays up before the panel resets.
const DefaultResetDelay = 3 * time.Second

var (
	// ErrNoValidExamples is returned by Begin when no example has both an
	// instruction and an output. No request is made.
	ErrNoValidExamples = errors.New(WarningNoValidExamples)

	// ErrTrainingInProgress is returned by Begin while a submission is outstanding.
	ErrTrainingInProgress = errors.New("training submission already in progress")

	// ErrLocked is returned by UpdateField while a submission is outstanding.
	ErrLocked = errors.New("examples cannot be edited while training is starting")

	// ErrIndexOutOfRange is returned by UpdateField for a bad index.
	ErrIndexOutOfRange = errors.New("example index out of range")
)

// Client is the part of the API client the controller needs.
type Client interface {
	Train(ctx context.Context, req api.TrainingRequest) (*api.TrainingResponse, error)
}

// =============================================================================
// STATUS
// =============================================================================

// StatusKind classifies the status line for rendering.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInProgress
	StatusSuccess
	StatusFailure
)

// Result describes a finished submission.
type Result struct {
	ExampleCount int
	Response     *api.TrainingResponse
	Err          error
	Status       string
	Kind         StatusKind
	Duration     time.Duration
}

// OK reports whether the submission succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Response != nil
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Controller.
type Options struct {
	// ResetDelay is how long to wait after success before resetting
	// (default: DefaultResetDelay).
	ResetDelay time.Duration

	// ClosePanelOnSuccess closes the panel when the reset fires.
	ClosePanelOnSuccess bool

	// OnReset is called, without the lock held, after a scheduled reset ran.
	OnReset func()

	// OnResult is called, without the lock held, after every finished submission.
	OnResult func(Result)

	// Scheduler runs the reset timer (default: time.AfterFunc).
	Scheduler Scheduler
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submission is an outstanding training request created by Begin.
type Submission struct {
	Request   api.TrainingRequest
	StartedAt time.Time

	generation uint64
	finished   bool
}

// Outcome is the result of Send.
type Outcome struct {
	Response *api.TrainingResponse
	Err      error
	Duration time.Duration
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the example list, the training flag, the status line and
// whether the panel is open. The list always holds at least one example.
type Controller struct {
	mu         sync.Mutex
	examples   []model.TrainingExample
	training   bool
	status     string
	statusKind StatusKind
	panelOpen  bool

	// generation advances on every Begin and Close; a reset timer only acts
	// if the generation it captured is still current.
	generation uint64
	resetTimer Timer
	closed     bool

	client Client
	opts   Options
	log    *logrus.Entry
}

// New creates a controller holding one blank example.
func New(client Client, opts Options, logger *logrus.Entry) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	return &Controller{
		examples: []model.TrainingExample{{}},
		client:   client,
		opts:     opts,
		log:      logger.WithField("component", "training"),
	}
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Examples returns a copy of the example list.
func (c *Controller) Examples() []model.TrainingExample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.TrainingExample, len(c.examples))
	copy(out, c.examples)
	return out
}

// Len returns the number of examples.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.examples)
}

// IsTraining reports whether a submission is outstanding.
func (c *Controller) IsTraining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.training
}

// Status returns the status line and its kind.
func (c *Controller) Status() (string, StatusKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.statusKind
}

// CanSubmit reports whether Begin would issue a request: not training and at
// least one example in the full list is valid.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.training && model.AnyValid(c.examples)
}

// ValidCount returns how many examples are currently valid.
func (c *Controller) ValidCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(model.FilterValid(c.examples))
}

// PanelOpen reports whether the training panel is visible.
func (c *Controller) PanelOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panelOpen
}

// SetPanelOpen shows or hides the panel. Hiding it does not cancel an
// outstanding submission.
func (c *Controller) SetPanelOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = open
}

// TogglePanel flips panel visibility and returns the new state.
func (c *Controller) TogglePanel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panelOpen = !c.panelOpen
	return c.panelOpen
}

// =============================================================================
// EDITING
// =============================================================================

// AddEntry appends a blank example and returns its index.
func (c *Controller) AddEntry() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.examples = append(c.examples, model.TrainingExample{})
	return len(c.examples) - 1
}

// RemoveEntry removes the example at index. It does nothing, returning false,
// when only one example remains or the index is out of range.
func (c *Controller) RemoveEntry(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.examples) <= 1 || index < 0 || index >= len(c.examples) {
		return false
	}

	next := make([]model.TrainingExample, 0, len(c.examples)-1)
	next = append(next, c.examples[:index]...)
	next = append(next, c.examples[index+1:]...)
	c.examples = next
	return true
}

// UpdateField replaces one field of the example at index. The stored
// example is swapped for an updated copy.
func (c *Controller) UpdateField(index int, field model.Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.training {
		return ErrLocked
	}
	if index < 0 || index >= len(c.examples) {
		return ErrIndexOutOfRange
	}

	updated, err := c.examples[index].With(field, value)
	if err != nil {
		return err
	}
	c.examples[index] = updated
	return nil
}

// Load replaces the whole list. An empty slice leaves one blank example.
func (c *Controller) Load(examples []model.TrainingExample) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.training {
		return ErrLocked
	}
	if len(examples) == 0 {
		c.examples = []model.TrainingExample{{}}
		return nil
	}
	c.examples = make([]model.TrainingExample, len(examples))
	copy(c.examples, examples)
	return nil
}

// =============================================================================
// SUBMISSION LIFECYCLE
// =============================================================================

// Begin validates the list and starts a submission. With no valid examples it
// returns ErrNoValidExamples and changes nothing; the caller shows
// WarningNoValidExamples. Otherwise it sets the training flag and the
// in-progress status and returns the request to send.
func (c *Controller) Begin() (*Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.training {
		return nil, ErrTrainingInProgress
	}

	valid := model.FilterValid(c.examples)
	if len(valid) == 0 {
		return nil, ErrNoValidExamples
	}

	c.cancelResetLocked()
	c.generation++
	c.training = true
	c.setStatusLocked(StatusStarting, StatusInProgress)

	c.log.WithField("examples", len(valid)).Info("starting training submission")

	return &Submission{
		Request: api.TrainingRequest{
			TrainingData:    valid,
			Hyperparameters: api.DefaultHyperparameters(),
		},
		StartedAt:  time.Now(),
		generation: c.generation,
	}, nil
}

// Send performs the network call for s without touching controller state.
func (c *Controller) Send(ctx context.Context, s *Submission) Outcome {
	start := time.Now()
	resp, err := c.client.Train(ctx, s.Request)
	return Outcome{Response: resp, Err: err, Duration: time.Since(start)}
}

// Finish records the outcome of s. The training flag is cleared in every
// case. On success the status shows the server message and a reset is
// scheduled; on failure the status shows the server detail (or a generic
// text) and the examples are kept for a retry. A second Finish for the same
// submission is ignored.
func (c *Controller) Finish(s *Submission, out Outcome) Result {
	c.mu.Lock()

	if s == nil || s.finished {
		c.mu.Unlock()
		return Result{}
	}
	s.finished = true
	c.training = false

	result := Result{
		ExampleCount: len(s.Request.TrainingData),
		Response:     out.Response,
		Err:          out.Err,
		Duration:     out.Duration,
	}

	entry := c.log.WithFields(logrus.Fields{"examples": result.ExampleCount, "duration": out.Duration})
	if out.Err == nil && out.Response != nil {
		c.setStatusLocked(successPrefix+out.Response.Message, StatusSuccess)
		entry.WithField("output_dir", out.Response.OutputDir).Info("training submission accepted")
		if !c.closed && s.generation == c.generation {
			c.scheduleResetLocked(s.generation)
		}
	} else {
		if result.Err == nil {
			result.Err = api.ErrPayload
		}
		c.setStatusLocked(failurePrefix+failureText(result.Err), StatusFailure)
		entry.WithError(result.Err).Error("training submission failed")
	}
	result.Status, result.Kind = c.status, c.statusKind

	onResult := c.opts.OnResult
	c.mu.Unlock()

	if onResult != nil {
		onResult(result)
	}
	return result
}

// Start runs Begin, Send and Finish in order.
func (c *Controller) Start(ctx context.Context) (Result, error) {
	s, err := c.Begin()
	if err != nil {
		return Result{}, err
	}
	return c.Finish(s, c.Send(ctx, s)), nil
}

// Reset clears the status, restores one blank example and, when configured,
// closes the panel.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelResetLocked()
	c.resetLocked()
}

// Close stops any pending reset. Timers that still fire afterwards do nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
	c.cancelResetLocked()
}

// =============================================================================
// INTERNAL
// =============================================================================

func (c *Controller) setStatusLocked(status string, kind StatusKind) {
	c.status = status
	c.statusKind = kind
}

func (c *Controller) resetLocked() {
	c.setStatusLocked("", StatusNone)
	c.examples = []model.TrainingExample{{}}
	if c.opts.ClosePanelOnSuccess {
		c.panelOpen = false
	}
}

func (c *Controller) cancelResetLocked() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

func (c *Controller) scheduleResetLocked(gen uint64) {
	c.cancelResetLocked()
	c.resetTimer = c.opts.Scheduler.AfterFunc(c.opts.ResetDelay, func() {
		c.mu.Lock()
		if c.closed || gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.resetTimer = nil
		c.resetLocked()
		onReset := c.opts.OnReset
		c.mu.Unlock()

		c.log.Debug("training panel reset")
		if onReset != nil {
			onReset()
		}
	})
}

// failureText picks the server detail when one was sent.
func failureText(err error) string {
	if detail, ok := api.DetailOf(err); ok {
		return strings.TrimSpace(detail)
	}
	return FallbackFailure
}
