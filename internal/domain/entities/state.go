package entities

import "fmt"

// Stage is the position of a session's pipeline state machine.
type Stage int

const (
	StageIdle Stage = iota
	StageValidatingURL
	StageCrawling
	StageChunking
	StageEmbedding
	StageIndexing
	StageReady
	StageChatting
	StageFailed
)

var stageNames = map[Stage]string{
	StageIdle:          "idle",
	StageValidatingURL: "validating_url",
	StageCrawling:      "crawling",
	StageChunking:      "chunking",
	StageEmbedding:     "embedding",
	StageIndexing:      "indexing",
	StageReady:         "ready",
	StageChatting:      "chatting",
	StageFailed:        "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// PipelineState is the tagged state of one session. Reason carries the
// human-readable cause when Stage is StageFailed and is empty otherwise.
type PipelineState struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason,omitempty"`
}

// Failed builds the terminal failure state for a cause.
func Failed(reason string) PipelineState {
	return PipelineState{Stage: StageFailed, Reason: reason}
}

// Event is an external input to the state machine.
type Event int

const (
	EventProcessRepository Event = iota
	EventAskQuestion
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventProcessRepository:
		return "process_repository"
	case EventAskQuestion:
		return "ask_question"
	case EventReset:
		return "reset"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// nextIngestStage is the fixed ingestion progression. Stages are never
// skipped; each advance moves exactly one step toward StageReady.
var nextIngestStage = map[Stage]Stage{
	StageValidatingURL: StageCrawling,
	StageCrawling:      StageChunking,
	StageChunking:      StageEmbedding,
	StageEmbedding:     StageIndexing,
	StageIndexing:      StageReady,
}

// Advance returns the ingestion stage that follows s. The second result is
// false when s is not an ingestion stage.
func (s Stage) Advance() (Stage, bool) {
	next, ok := nextIngestStage[s]
	return next, ok
}

// Apply is the pure transition function of the state machine: it returns the
// stage entered when ev arrives while in s, or an error when the event is
// rejected for that stage. It performs no effects.
func Apply(s Stage, ev Event) (Stage, error) {
	switch ev {
	case EventReset:
		return StageIdle, nil
	case EventProcessRepository:
		switch s {
		case StageIdle, StageReady, StageChatting:
			return StageValidatingURL, nil
		case StageFailed:
			return s, fmt.Errorf("session failed; reset before processing another repository")
		default:
			return s, fmt.Errorf("processing already in progress (%s)", s)
		}
	case EventAskQuestion:
		switch s {
		case StageReady, StageChatting:
			return StageChatting, nil
		default:
			return s, fmt.Errorf("%w (state %s)", ErrNotReady, s)
		}
	}
	return s, fmt.Errorf("unknown event %v", ev)
}
