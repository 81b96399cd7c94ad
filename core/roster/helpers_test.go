package roster_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/tests"
)

var (
	codeLabel  = "رمز الطالب"
	nameLabel  = "اسم الطالب"
	levelLabel = "المستوى الدراسي"
)

type fakeInserter struct {
	mu        sync.Mutex
	inserted  []map[string]string
	actors    []string
	failCodes map[string]bool
	onInsert  func(n int) // called before the n-th (1-based) insert returns
}

func (ins *fakeInserter) Insert(_ context.Context, fields map[string]string, createdBy string) error {
	ins.mu.Lock()
	ins.inserted = append(ins.inserted, fields)
	ins.actors = append(ins.actors, createdBy)
	n := len(ins.inserted)
	fail := ins.failCodes[fields[roster.FieldStudentCode]]
	hook := ins.onInsert
	ins.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if fail {
		return errors.New("duplicate student code")
	}
	return nil
}

func (ins *fakeInserter) codes() []string {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	codes := make([]string, 0, len(ins.inserted))
	for _, f := range ins.inserted {
		codes = append(codes, f[roster.FieldStudentCode])
	}
	return codes
}

func newExtractor() *roster.Extractor {
	return roster.NewExtractor(core.NewValidator())
}

func newCommitter(t *testing.T, ins roster.Inserter) (*roster.Committer, *testutil.Logger) {
	logger := testutil.NewLogger(t)
	return roster.NewCommitter(ins, logger, core.NewTestConfig()), logger
}

func candidates(t *testing.T, sheet roster.RawSheet) []roster.CandidateStudent {
	t.Helper()
	batch, err := newExtractor().Extract(sheet)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	return batch.Candidates
}
