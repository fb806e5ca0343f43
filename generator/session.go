package generator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Outcome 是一次完整运行（生成 + 落盘）的结果。
type Outcome struct {
	Request      RunRequest     `json:"request"`
	Result       PipelineResult `json:"result"`
	MarkdownPath string         `json:"markdown_path"`
	MetadataPath string         `json:"metadata_path"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// RunFunc executes and persists one request.
type RunFunc func(ctx context.Context, req RunRequest) (Outcome, error)

// Turn 记录会话中的一次生成尝试。
type Turn struct {
	Request   RunRequest `json:"request"`
	Outcome   *Outcome   `json:"outcome,omitempty"`
	Err       string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session 持有交互式入口的会话状态：同一时刻最多一个生成任务。
type Session struct {
	ID string

	run     RunFunc
	mu      sync.Mutex
	busy    bool
	last    *Outcome
	history []Turn
}

// NewSession 创建 session，尚未生成稿件。
func NewSession(id string, run RunFunc) *Session {
	return &Session{ID: id, run: run}
}

// Generate runs req unless another generation is in flight, in which case it
// returns ErrSessionBusy immediately.
func (s *Session) Generate(ctx context.Context, req RunRequest) (Outcome, error) {
	if s.run == nil {
		return Outcome{}, errors.New("generator: session has no runner")
	}
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Outcome{}, ErrSessionBusy
	}
	s.busy = true
	s.mu.Unlock()

	out, err := s.run(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	turn := Turn{Request: req, CreatedAt: time.Now()}
	if err != nil {
		turn.Err = err.Error()
		s.history = append(s.history, turn)
		return Outcome{}, err
	}
	s.last = &out
	turn.Outcome = &out
	s.history = append(s.history, turn)
	return out, nil
}

// Busy reports whether a generation is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Last returns the most recent successful outcome.
func (s *Session) Last() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// History returns a copy of the session's turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn{}, s.history...)
}
