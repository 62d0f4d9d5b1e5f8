package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
)

// Orchestrator owns one session's state machine. Events for the same session
// are never handled concurrently: chat turns are serialized, and a second
// ProcessRepository while a pipeline is in flight is rejected by the
// transition function rather than queued.
type Orchestrator struct {
	id      string
	process *ProcessUseCase
	chat    *ChatUseCase
	window  int
	logger  *slog.Logger

	mu        sync.RWMutex // guards state, repo, namespace, conv, run
	state     entities.PipelineState
	repo      entities.RepoRef
	namespace string
	conv      *Conversation
	run       int // pipeline generation; stale runs discard their results

	turnMu sync.Mutex // serializes chat turns
}

// NewOrchestrator creates an idle session.
func NewOrchestrator(process *ProcessUseCase, chat *ChatUseCase, historyWindow int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		id:      uuid.NewString(),
		process: process,
		chat:    chat,
		window:  historyWindow,
		logger:  logger,
		state:   entities.PipelineState{Stage: entities.StageIdle},
		conv:    NewConversation(historyWindow),
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// CurrentState returns the session's pipeline state.
func (o *Orchestrator) CurrentState() entities.PipelineState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Repository returns the currently indexed repository, if any.
func (o *Orchestrator) Repository() entities.RepoRef {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.repo
}

// History returns the session's conversation turns, oldest first.
func (o *Orchestrator) History() []entities.ConversationTurn {
	o.mu.RLock()
	conv := o.conv
	o.mu.RUnlock()
	return conv.Render()
}

// Reset returns the session to Idle, clearing conversation and repository
// binding. Indexed vectors are kept; re-processing the same URL reuses them.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run++
	o.state = entities.PipelineState{Stage: entities.StageIdle}
	o.repo = entities.RepoRef{}
	o.namespace = ""
	o.conv = NewConversation(o.window)
}

// ProcessRepository starts the ingestion pipeline for url. It returns a
// channel that receives every pipeline state the session passes through,
// ending with Ready or Failed, then closes. The event is rejected
// synchronously when the current state does not accept it.
func (o *Orchestrator) ProcessRepository(ctx context.Context, url string) (<-chan entities.PipelineState, error) {
	o.mu.Lock()
	next, err := entities.Apply(o.state.Stage, entities.EventProcessRepository)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.run++
	run := o.run
	o.state = entities.PipelineState{Stage: next}
	o.mu.Unlock()

	updates := make(chan entities.PipelineState, 16)
	go o.runPipeline(ctx, run, url, updates)
	return updates, nil
}

// runPipeline walks validating -> crawling -> chunking -> embedding ->
// indexing -> ready, never skipping a stage. Any stage failure lands in
// Failed(reason) without exposing a partially-indexed namespace.
func (o *Orchestrator) runPipeline(ctx context.Context, run int, url string, updates chan<- entities.PipelineState) {
	defer close(updates)

	emit := func(st entities.PipelineState) bool {
		o.mu.Lock()
		if o.run != run {
			// Session was reset or superseded; discard this run's result.
			o.mu.Unlock()
			return false
		}
		o.state = st
		o.mu.Unlock()
		select {
		case updates <- st:
		default:
		}
		return true
	}

	fail := func(err error) {
		o.logger.Warn("pipeline failed", "session", o.id, "url", url, "error", err)
		emit(entities.Failed(err.Error()))
	}

	advance := func(current entities.Stage) (entities.Stage, bool) {
		next, ok := current.Advance()
		if !ok {
			return current, false
		}
		if !emit(entities.PipelineState{Stage: next}) {
			return current, false
		}
		return next, true
	}

	stage := entities.StageValidatingURL
	if !emit(entities.PipelineState{Stage: stage}) {
		return
	}

	repo, err := entities.ParseRepoURL(url)
	if err != nil {
		fail(err)
		return
	}
	namespace := repo.Namespace()

	var ok bool
	if stage, ok = advance(stage); !ok {
		return
	}
	files, err := o.process.Crawl(ctx, repo)
	if err != nil {
		fail(err)
		return
	}

	if stage, ok = advance(stage); !ok {
		return
	}
	chunks := o.process.ChunkFiles(namespace, files)

	if stage, ok = advance(stage); !ok {
		return
	}
	embedded, err := o.process.EmbedChunks(ctx, chunks)
	if err != nil {
		fail(err)
		return
	}

	if _, ok = advance(stage); !ok {
		return
	}

	o.mu.RLock()
	stale := o.namespace
	o.mu.RUnlock()
	if err := o.process.Index(ctx, namespace, stale, embedded); err != nil {
		fail(err)
		return
	}

	// Bind the session to the new repository. The previous conversation is
	// invalidated by the switch.
	o.mu.Lock()
	if o.run != run {
		o.mu.Unlock()
		return
	}
	o.repo = repo
	o.namespace = namespace
	o.conv = NewConversation(o.window)
	o.mu.Unlock()

	emit(entities.PipelineState{Stage: entities.StageReady})
	o.logger.Info("repository ready", "session", o.id, "repo", repo.String(), "chunks", len(embedded))
}

// Ask answers one question against the session's repository. Rejected with
// ErrNotReady unless the session is Ready (or already Chatting). A failed
// turn leaves the conversation untouched.
func (o *Orchestrator) Ask(ctx context.Context, question string) (string, error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	o.mu.Lock()
	next, err := entities.Apply(o.state.Stage, entities.EventAskQuestion)
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	o.state = entities.PipelineState{Stage: next}
	namespace, repo, conv := o.namespace, o.repo, o.conv
	run := o.run
	o.mu.Unlock()

	answer, askErr := o.chat.Ask(ctx, namespace, repo, conv, question)

	o.mu.Lock()
	if o.run == run && o.state.Stage == entities.StageChatting {
		o.state = entities.PipelineState{Stage: entities.StageReady}
	}
	o.mu.Unlock()

	if askErr != nil {
		return "", fmt.Errorf("session %s: %w", o.id, askErr)
	}
	return answer, nil
}
