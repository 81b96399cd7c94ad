package roster

import (
	"context"
	"math"
	"time"

	"github.com/trezcool/casebook/core"
)

// Inserter persists one record created by `createdBy`.
type Inserter interface {
	Insert(ctx context.Context, fields map[string]string, createdBy string) error
}

// Progress of a commit run. Percent is 100 only once every record was attempted.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Percent   int `json:"percent"`
}

func (p Progress) Finished() bool { return p.Total > 0 && p.Completed == p.Total }

func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) * 100 / float64(total)))
	if pct >= 100 && completed < total {
		pct = 99
	}
	return pct
}

// Failure is a rejected insert.
type Failure struct {
	Row         int    `json:"row"`
	StudentCode string `json:"student_code"`
	Error       string `json:"error"`
}

// Redirect tells the client to leave the import screen after a delay.
type Redirect struct {
	Path  string        `json:"path"`
	After time.Duration `json:"after"`
}

// Outcome of a commit run. Succeeded + Failed == Total unless the run was cancelled.
type Outcome struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Cancelled bool      `json:"cancelled"`
	Failures  []Failure `json:"failures"`
	Redirect  *Redirect `json:"redirect,omitempty"`
	Notice    Notice    `json:"notice"`
}

func (o *Outcome) NotAttempted() int { return o.Total - o.Succeeded - o.Failed }

// Committer inserts valid candidates one at a time, in extraction order.
type Committer struct {
	inserter      Inserter
	logger        core.Logger
	insertTimeout time.Duration
	redirect      Redirect
}

func NewCommitter(inserter Inserter, logger core.Logger, conf *core.Config) *Committer {
	return &Committer{
		inserter:      inserter,
		logger:        logger,
		insertTimeout: conf.Import.InsertTimeout,
		redirect:      Redirect{Path: conf.Import.RedirectPath, After: conf.Import.RedirectDelay},
	}
}

// Run commits the valid candidates on behalf of `actorID`. A rejected insert is counted and
// logged, then the next candidate is attempted. Cancelling `ctx` stops the run between inserts;
// `onProgress` (optional) is called after every attempt.
func (c *Committer) Run(ctx context.Context, actorID string, candidates []CandidateStudent, onProgress func(Progress)) (Outcome, error) {
	if actorID == "" {
		return Outcome{}, ErrNoActor
	}
	valid := make([]CandidateStudent, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Validation.IsValid {
			valid = append(valid, cand)
		}
	}
	if len(valid) == 0 {
		return Outcome{}, ErrNoValidRecords
	}

	out := Outcome{Total: len(valid), Failures: []Failure{}}
	for i, cand := range valid {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}

		if err := c.insert(ctx, cand, actorID); err != nil {
			out.Failed++
			out.Failures = append(out.Failures, Failure{Row: cand.Row, StudentCode: cand.Code(), Error: err.Error()})
			c.logger.Warn("roster: insert failed", err, map[string]interface{}{
				"row":          cand.Row,
				"student_code": cand.Code(),
				"actor":        actorID,
			})
		} else {
			out.Succeeded++
		}

		if onProgress != nil {
			onProgress(Progress{
				Completed: i + 1,
				Total:     out.Total,
				Succeeded: out.Succeeded,
				Failed:    out.Failed,
				Percent:   percent(i+1, out.Total),
			})
		}
	}

	if out.Succeeded > 0 && c.redirect.Path != "" {
		redirect := c.redirect
		out.Redirect = &redirect
	}
	out.Notice = outcomeNotice(&out)
	c.logger.Info("roster: commit finished", map[string]interface{}{
		"actor":     actorID,
		"total":     out.Total,
		"succeeded": out.Succeeded,
		"failed":    out.Failed,
		"cancelled": out.Cancelled,
	})
	return out, nil
}

// insert runs one insert to completion even if the run gets cancelled meanwhile.
func (c *Committer) insert(ctx context.Context, cand CandidateStudent, actorID string) error {
	ctx = context.WithoutCancel(ctx)
	if c.insertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.insertTimeout)
		defer cancel()
	}
	return c.inserter.Insert(ctx, cand.Record.Fields(), actorID)
}
