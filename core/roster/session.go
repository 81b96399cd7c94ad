package roster

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type State int

// Session states
const (
	StateIdle State = iota
	StateExtracted
	StateCommitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracted:
		return "extracted"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StateExtracted, StateCommitting, StateDone} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return errors.Errorf("unknown session state %q", text)
}

const subscriberBuffer = 16

// Session is the review & commit controller of one operator's import:
// Idle -> Extracted -> Committing -> Done. Loading a new file starts over from Idle.
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	extractor *Extractor
	committer *Committer

	mu        sync.Mutex
	state     State
	loading   bool
	fileName  string
	batch     Batch
	notice    Notice
	progress  Progress
	outcome   *Outcome
	cancel    context.CancelFunc
	done      chan struct{}
	subs      map[chan Progress]struct{}
	updatedAt time.Time
}

func NewSession(ownerID string, extractor *Extractor, committer *Committer) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		extractor: extractor,
		committer: committer,
		subs:      make(map[chan Progress]struct{}),
		updatedAt: now,
	}
}

// Status is a snapshot of a Session.
type Status struct {
	ID         string             `json:"id"`
	State      State              `json:"state"`
	FileName   string             `json:"file_name"`
	Notice     Notice             `json:"notice"`
	Columns    []HeaderMatch      `json:"columns"`
	Candidates []CandidateStudent `json:"candidates"`
	Valid      int                `json:"valid"`
	Invalid    int                `json:"invalid"`
	Skipped    int                `json:"skipped"`
	Progress   Progress           `json:"progress"`
	Outcome    *Outcome           `json:"outcome,omitempty"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:         s.ID,
		State:      s.state,
		FileName:   s.fileName,
		Notice:     s.notice,
		Columns:    s.batch.Columns,
		Candidates: s.batch.Candidates,
		Valid:      s.batch.ValidCount(),
		Invalid:    s.batch.InvalidCount(),
		Skipped:    s.batch.Skipped,
		Progress:   s.progress,
	}
	if s.outcome != nil {
		out := *s.outcome
		st.Outcome = &out
	}
	return st
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Batch returns the current batch.
func (s *Session) Batch() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// UpdatedAt is the last time the session changed state.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = time.Now().UTC()
}

// Load replaces the batch with the content of a new file.
// Unsupported files are rejected without touching the current batch.
// The session is Extracted only if the file produced at least one candidate.
// One file is loaded at a time: a concurrent Load fails with ErrLoadInProgress.
func (s *Session) Load(filename string, src Source) (Notice, error) {
	if _, err := DetectFormat(filename); err != nil {
		return ErrorNotice(err), err
	}

	s.mu.Lock()
	switch {
	case s.loading:
		s.mu.Unlock()
		return ErrorNotice(ErrLoadInProgress), ErrLoadInProgress
	case s.state == StateCommitting:
		s.mu.Unlock()
		return ErrorNotice(ErrCommitInProgress), ErrCommitInProgress
	}
	s.reset()
	s.fileName = filename
	s.loading = true
	s.mu.Unlock()

	batch, notice, err := s.extractor.Load(filename, src)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.notice = notice
	if err != nil {
		return notice, err
	}
	s.batch = batch
	if !batch.IsEmpty() {
		s.state = StateExtracted
	}
	return notice, nil
}

// Discard drops the batch and goes back to Idle.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrLoadInProgress
	}
	if s.state == StateCommitting {
		return ErrCommitInProgress
	}
	s.reset()
	return nil
}

// must hold s.mu
func (s *Session) reset() {
	s.state = StateIdle
	s.fileName = ""
	s.batch = Batch{}
	s.notice = Notice{}
	s.progress = Progress{}
	s.outcome = nil
	s.updatedAt = time.Now().UTC()
}

// StartCommit checks the commit preconditions then commits the valid candidates in the background.
// `ctx` governs the whole run. Nothing is attempted when an error is returned.
func (s *Session) StartCommit(ctx context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state == StateCommitting:
		return ErrCommitInProgress
	case s.state != StateExtracted:
		return ErrNotExtracted
	case actorID == "":
		return ErrNoActor
	}
	valid := s.batch.Valid()
	if len(valid) == 0 {
		return ErrNoValidRecords
	}

	ctx, cancel := context.WithCancel(ctx)
	s.state = StateCommitting
	s.cancel = cancel
	s.done = make(chan struct{})
	s.progress = Progress{Total: len(valid)}
	s.outcome = nil
	s.updatedAt = time.Now().UTC()

	go s.run(ctx, actorID, valid, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, actorID string, valid []CandidateStudent, done chan struct{}) {
	out, err := s.committer.Run(ctx, actorID, valid, s.publish)
	if err != nil {
		out = Outcome{Total: len(valid), Failures: []Failure{}, Notice: ErrorNotice(err)}
	}

	s.mu.Lock()
	s.cancel()
	s.cancel = nil
	s.outcome = &out
	s.notice = out.Notice
	s.state = StateDone
	s.updatedAt = time.Now().UTC()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	close(done)
}

func (s *Session) publish(p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = p
	for ch := range s.subs {
		offer(ch, p)
	}
}

// offer delivers `p` without blocking, dropping the oldest pending update of a slow subscriber.
func offer(ch chan Progress, p Progress) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}

// Commit runs StartCommit and waits for the outcome.
func (s *Session) Commit(ctx context.Context, actorID string) (Outcome, error) {
	if err := s.StartCommit(ctx, actorID); err != nil {
		return Outcome{}, err
	}
	return s.Wait(context.Background())
}

// Wait blocks until the current commit run is over.
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return Outcome{}, ErrNotExtracted
	}

	select {
	case <-done:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		// a new file was loaded since
		return Outcome{}, ErrNotExtracted
	}
	return *s.outcome, nil
}

// Cancel stops the running commit after the in-flight insert. Reports whether a run was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCommitting || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Subscribe streams commit progress. The channel gets the current progress first and is closed
// once the run is over (immediately when no run is active). Call `unsubscribe` to stop early.
func (s *Session) Subscribe() (updates <-chan Progress, unsubscribe func()) {
	ch := make(chan Progress, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	ch <- s.progress
	if s.state != StateCommitting {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}
