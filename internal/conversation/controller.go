// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation owns the chat message log and the request lifecycle of
// a single chat session.
//
// A submission runs in three phases so an event loop can keep the network
// call off its own goroutine:
//
//	p, ok := ctrl.Begin(text)        // append user message, set loading
//	out := ctrl.Send(ctx, p)         // HTTP round trip, no state change
//	ctrl.Finish(p, out)              // append reply or apology, clear loading
//
// Submit runs all three in order.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/ragchat/internal/api"
	"github.com/jeranaias/ragchat/internal/logging"
	"github.com/jeranaias/ragchat/internal/model"
)

// ErrorReply is the assistant text appended when a chat request fails.
const ErrorReply = "Sorry, an error occurred. Please try again."

// Client is the part of the API client the controller needs.
type Client interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// =============================================================================
// PENDING REQUEST
// =============================================================================

// Pending is an outstanding chat request created by Begin.
type Pending struct {
	Request     api.ChatRequest
	UserMessage model.Message
	StartedAt   time.Time

	finished bool
}

// Outcome is the result of Send.
type Outcome struct {
	Response *api.ChatResponse
	Err      error
	Duration time.Duration
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the message log, the input buffer and the loading flag.
// It is safe for concurrent use; the mutex is never held across a network call.
type Controller struct {
	mu      sync.Mutex
	conv    *model.Conversation
	input   string
	loading bool

	client Client
	log    *logrus.Entry
	now    func() time.Time
}

// New creates a controller with an empty log.
func New(client Client, logger *logrus.Entry) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		conv:   model.NewConversation(),
		client: client,
		log:    logger.WithField("component", "conversation"),
		now:    time.Now,
	}
}

// SetClock replaces the time source used to stamp messages.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Messages returns a copy of the log in insertion order.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Messages()
}

// Len returns the number of messages in the log.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Len()
}

// ConversationID returns the ID of the underlying log.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.ID
}

// IsLoading reports whether a chat request is outstanding.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Input returns the current input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = s
}

// CanSubmit reports whether text would be accepted by Begin.
func (c *Controller) CanSubmit(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.loading && strings.TrimSpace(text) != ""
}

// =============================================================================
// SUBMISSION LIFECYCLE
// =============================================================================

// Begin starts a submission. It returns false, changing nothing, when text is
// blank or a request is already outstanding. Otherwise it appends the user
// message, clears the input and sets the loading flag. The request history
// holds the messages that preceded this one.
func (c *Controller) Begin(text string) (*Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loading {
		c.log.Debug("submit ignored: request outstanding")
		return nil, false
	}
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	history := c.conv.History()
	now := c.now()
	userMsg := model.NewMessageAt(model.RoleUser, text, now)
	c.conv.Append(userMsg)
	c.input = ""
	c.loading = true

	return &Pending{
		Request:     api.ChatRequest{Message: text, History: history},
		UserMessage: userMsg,
		StartedAt:   now,
	}, true
}

// Send performs the network call for p. It does not touch controller state,
// so it may run on any goroutine.
func (c *Controller) Send(ctx context.Context, p *Pending) Outcome {
	start := time.Now()
	resp, err := c.client.Chat(ctx, p.Request)
	return Outcome{Response: resp, Err: err, Duration: time.Since(start)}
}

// Finish applies the outcome of p: the assistant reply on success, the fixed
// apology on any failure. The loading flag is cleared exactly once; finishing
// the same Pending again does nothing and returns false.
func (c *Controller) Finish(p *Pending, out Outcome) (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil || p.finished {
		return model.Message{}, false
	}
	p.finished = true

	var reply model.Message
	switch {
	case out.Err != nil || out.Response == nil:
		err := out.Err
		if err == nil {
			err = api.ErrPayload
		}
		c.log.WithError(err).WithField("duration", out.Duration).Error("chat request failed")
		reply = model.NewMessageAt(model.RoleAssistant, ErrorReply, c.now())
		reply.Failed = true
	default:
		c.log.WithField("duration", out.Duration).Debug("chat reply received")
		reply = model.NewMessageAt(model.RoleAssistant, out.Response.Response, c.now())
	}

	c.conv.Append(reply)
	c.loading = false
	return reply, true
}

// Submit runs Begin, Send and Finish in order. It returns false when the
// submission was not accepted.
func (c *Controller) Submit(ctx context.Context, text string) (model.Message, bool) {
	p, ok := c.Begin(text)
	if !ok {
		return model.Message{}, false
	}
	return c.Finish(p, c.Send(ctx, p))
}

// SubmitInput submits the current input buffer.
func (c *Controller) SubmitInput(ctx context.Context) (model.Message, bool) {
	return c.Submit(ctx, c.Input())
}
