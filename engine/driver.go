// Copyright 2026 The OpenConvo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine assembles assistant responses from incremental model
// streams. A Driver consumes raw stream lines, reconstructs the typed
// output timeline, detects free-text tag conventions, runs bounded
// tool-call and code-execution loops, and keeps the durable message
// state current throughout.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/openconvo/convoengine/asyncqueue"
	"github.com/openconvo/convoengine/asynctask"
	"github.com/openconvo/convoengine/codeexec"
	"github.com/openconvo/convoengine/store"
	"github.com/openconvo/convoengine/tagparse"
	"github.com/openconvo/convoengine/timeline"
	"github.com/openconvo/convoengine/tools"
	"github.com/openconvo/convoengine/usage"
)

// Params configures a Driver. Model is required; everything else
// degrades gracefully when absent.
type Params struct {
	// Model opens completion streams.
	Model ModelClient

	// Tools resolves tool calls. Calls to names the resolver does not
	// know are ignored.
	Tools tools.Resolver

	// Store receives durable snapshots of the message state. Without a
	// store nothing is persisted.
	Store store.Store

	// CodeBackend executes tag-delimited code blocks. Without a backend
	// the code-interpreter convention is not even offered to the tag
	// detector.
	CodeBackend codeexec.Backend

	// Uploader externalizes inline binary payloads.
	Uploader Uploader

	// CallRemote reaches the live client session for client-side tools.
	CallRemote RemoteCallFunc

	Config Config
}

// Driver runs assistant turns. It is stateless between turns and safe
// for concurrent use; all per-turn state lives in the session.
type Driver struct {
	config      Config
	model       ModelClient
	resolver    tools.Resolver
	store       store.Store
	codeBackend codeexec.Backend
	uploader    Uploader
	callRemote  RemoteCallFunc
	detector    *tagparse.Detector
}

func NewDriver(params Params) (*Driver, error) {
	if params.Model == nil {
		return nil, NewUserError("a model client is required")
	}
	d := &Driver{
		config:      params.Config,
		model:       params.Model,
		resolver:    params.Tools,
		store:       params.Store,
		codeBackend: params.CodeBackend,
		uploader:    params.Uploader,
		callRemote:  params.CallRemote,
	}
	d.detector = tagparse.NewDetector(d.config.conventions(d.codeBackend != nil)...)
	return d, nil
}

// RespondParams identifies one assistant message and provides its input.
type RespondParams struct {
	ChatID    string
	MessageID string

	// Turns is the conversation so far, ending with the turn that the
	// assistant responds to.
	Turns []Turn

	// Emit receives live events. Optional.
	Emit EmitFunc
}

// Result is the final state of a finished or cancelled turn.
type Result struct {
	MessageID string
	Content   string
	Timeline  *timeline.Timeline
	Usage     *usage.Usage
	Sources   []Source
	Files     []timeline.FileRef
	Embeds    []timeline.Embed
}

// Respond runs one assistant turn to completion, blocking until it
// finishes, fails or the context is cancelled. On cancellation the
// partial result is persisted and returned alongside a CanceledError; on
// upstream failure alongside the failure. The returned Result is never
// nil.
func (d *Driver) Respond(ctx context.Context, params RespondParams) (*Result, error) {
	if params.MessageID == "" {
		params.MessageID = uuid.NewString()
	}
	s := newSession(params.ChatID, params.MessageID, params.Turns)

	// The turn's usage rides the context so tool handlers that make
	// model calls of their own can count them against the turn.
	ctx = usage.NewContext(ctx, s.usage)

	em := newEmitter(params.Emit, s.timeline.Serialize, d.config.deltaChunkSize())
	if d.store != nil && d.config.persistMode() == PersistRealtime {
		em.onFlush = func() { d.persist(ctx, s, "in_progress", "") }
	}
	s.timeline.Append(timeline.NewAssistantMessage())

	err := d.runTurnLoop(ctx, s, em)

	s.timeline.Finalize()
	content := s.timeline.Serialize()

	// Termination always persists, whatever the outcome, on a context
	// that survives the caller's cancellation. The realtime hook is
	// detached first so a late flush cannot overwrite the final status.
	em.onFlush = nil
	persistCtx := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		d.persist(persistCtx, s, "completed", "")
		em.Flush()
		em.Event(CompletedEvent{Content: content, Usage: s.usage})
	case errors.Is(err, context.Canceled) || errors.Is(err, asynctask.Canceled()):
		d.persist(persistCtx, s, "cancelled", "")
		em.Flush()
		em.Event(CancelledEvent{Content: content})
	default:
		d.persist(persistCtx, s, "error", err.Error())
		em.Flush()
		em.Event(ErrorEvent{Message: err.Error()})
	}

	return &Result{
		MessageID: params.MessageID,
		Content:   content,
		Timeline:  s.timeline,
		Usage:     s.usage,
		Sources:   s.sources,
		Files:     s.files,
		Embeds:    s.embeds,
	}, err
}

// runTurnLoop alternates model streams with code execution and tool
// calls until the model produces a stream requiring neither, or a turn
// cap is reached.
func (d *Driver) runTurnLoop(ctx context.Context, s *session, em *emitter) error {
	for {
		if err := d.streamOnce(ctx, s, em); err != nil {
			return err
		}

		if ci := nextCodeBlock(s); ci != nil && d.codeBackend != nil {
			if s.codeTurns >= d.config.maxCodeTurns() {
				Logger().Warn("code turn cap reached", "turns", s.codeTurns)
				return nil
			}
			if err := d.executeCodeBlock(ctx, s, em, ci); err != nil {
				return err
			}
			continue
		}

		if len(s.timeline.PendingCalls()) > 0 {
			if s.toolTurns >= d.config.maxToolTurns() {
				Logger().Warn("tool turn cap reached", "turns", s.toolTurns)
				return nil
			}
			executed, err := d.executeToolCalls(ctx, s, em)
			if err != nil {
				return err
			}
			if executed {
				continue
			}
		}

		return nil
	}
}

// streamOnce opens one model stream and reduces it to the end. Whatever
// happens, items left open are closed and accumulated tool-call
// fragments are promoted, so the timeline is coherent afterwards.
func (d *Driver) streamOnce(ctx context.Context, s *session, em *emitter) error {
	req := Request{Turns: s.conversationTurns(), Tools: d.toolSchemas()}
	seq, err := d.model.StreamCompletion(ctx, req)
	if err != nil {
		return err
	}

	s.streamUsage = nil
	var streamErr error
	for line, lineErr := range seq {
		if ctx.Err() != nil {
			streamErr = CanceledErrorf("turn cancelled: %w", context.Canceled)
			break
		}
		if lineErr != nil {
			if ctx.Err() != nil {
				streamErr = CanceledErrorf("turn cancelled: %w", context.Canceled)
			} else {
				streamErr = lineErr
			}
			break
		}
		done, err := d.reduceLine(ctx, s, em, line)
		if err != nil {
			streamErr = err
			break
		}
		if done {
			break
		}
	}

	if s.streamUsage != nil {
		s.usage.Add(s.streamUsage)
		s.streamUsage = nil
	}
	d.externalizeActive(ctx, s, true)
	s.timeline.ForceClose()
	d.promotePendingCalls(s, em)
	return streamErr
}

func (d *Driver) toolSchemas() []ToolSchema {
	lister, ok := d.resolver.(tools.Lister)
	if !ok {
		return nil
	}
	list := lister.ListTools()
	schemas := make([]ToolSchema, len(list))
	for i, t := range list {
		schemas[i] = SchemaForTool(t)
	}
	return schemas
}

// persist writes the current snapshot. Persistence failures are logged
// and never abort the turn.
func (d *Driver) persist(ctx context.Context, s *session, status, errText string) {
	if d.store == nil {
		return
	}
	state := &store.MessageState{
		Timeline: s.timeline.Snapshot(),
		Content:  s.timeline.Serialize(),
		Usage:    s.usage,
		Status:   status,
		Error:    errText,
	}
	if err := d.store.Upsert(ctx, s.chatID, s.messageID, state); err != nil {
		Logger().Warn("failed to persist message state",
			"chat_id", s.chatID, "message_id", s.messageID, "error", err)
	}
}

// Run is a handle on an in-flight asynchronous turn.
type Run struct {
	task   *asynctask.Task
	events *asyncqueue.Queue[Event]

	mu     sync.Mutex
	result *Result
}

// Start launches a turn in the background and returns its handle.
// Events stream through the handle's queue; Cancel stops the turn, after
// which the queue drains to the terminal CancelledEvent and closes.
func (d *Driver) Start(ctx context.Context, params RespondParams) *Run {
	events := asyncqueue.New[Event]()
	clientEmit := params.Emit
	params.Emit = func(ev Event) {
		events.Put(ev)
		if clientEmit != nil {
			clientEmit(ev)
		}
	}

	r := &Run{events: events}
	r.task = asynctask.Start(ctx, func(ctx context.Context) error {
		result, err := d.Respond(ctx, params)
		r.mu.Lock()
		r.result = result
		r.mu.Unlock()
		events.Close()
		return err
	})
	return r
}

// Next blocks for the next event. The second result is false once the
// run has terminated and all queued events were consumed.
func (r *Run) Next() (Event, bool) { return r.events.Get() }

// Events exposes the raw event queue.
func (r *Run) Events() *asyncqueue.Queue[Event] { return r.events }

// Cancel requests cancellation. The turn persists its partial state and
// terminates with a CancelledEvent.
func (r *Run) Cancel() { r.task.Cancel() }

// Await blocks until the run terminates and returns its result. After
// cancellation the result carries the partial state.
func (r *Run) Await() (*Result, error) {
	err := r.task.Await()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, err
}

// IsDone reports whether the run has terminated.
func (r *Run) IsDone() bool { return r.task.IsDone() }
