package roster_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/tests"
)

func rosterFile(t *testing.T) *bytes.Reader {
	return testutil.XLSX(t, [][]interface{}{
		{codeLabel, nameLabel, levelLabel},
		{"S001", "Ahmed", "ابتدائي"},
		{"", "NoCode", "ثانوي"},
	})
}

// gatedSource holds the first Seek until `release` is closed.
type gatedSource struct {
	*bytes.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSource(r *bytes.Reader) *gatedSource {
	return &gatedSource{Reader: r, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSource) Seek(offset int64, whence int) (int64, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.Reader.Seek(offset, whence)
}

func newSession(t *testing.T, ins roster.Inserter) *roster.Session {
	committer, _ := newCommitter(t, ins)
	return roster.NewSession("op-1", newExtractor(), committer)
}

func TestSession_lifecycle(t *testing.T) {
	ins := &fakeInserter{}
	sess := newSession(t, ins)
	assert.Equal(t, roster.StateIdle, sess.State())

	_, err := sess.Commit(context.Background(), "op-1")
	assert.Equal(t, roster.ErrNotExtracted, errors.Cause(err), "nothing to commit while idle")

	notice, err := sess.Load("roster.xlsx", rosterFile(t))
	require.NoError(t, err)
	assert.Equal(t, roster.LevelSuccess, notice.Level)
	assert.Equal(t, roster.StateExtracted, sess.State())

	st := sess.Status()
	assert.Equal(t, "roster.xlsx", st.FileName)
	assert.Equal(t, 1, st.Valid)
	assert.Equal(t, 1, st.Invalid)

	out, err := sess.Commit(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S001"}, ins.codes(), "exactly one insert")
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 0, out.Failed)
	assert.Equal(t, roster.StateDone, sess.State())

	st = sess.Status()
	require.NotNil(t, st.Outcome)
	assert.Equal(t, 100, st.Progress.Percent)
	assert.Equal(t, out.Notice, st.Notice)

	_, err = sess.Commit(context.Background(), "op-1")
	assert.Equal(t, roster.ErrNotExtracted, errors.Cause(err), "done is terminal for the batch")
	assert.Len(t, ins.codes(), 1)

	// a new file starts over
	_, err = sess.Load("roster.xlsx", rosterFile(t))
	require.NoError(t, err)
	assert.Equal(t, roster.StateExtracted, sess.State())
	assert.Nil(t, sess.Status().Outcome)
}

func TestSession_Load(t *testing.T) {
	t.Run("pdf", func(t *testing.T) {
		ins := &fakeInserter{}
		sess := newSession(t, ins)
		notice, err := sess.Load("roster.pdf", bytes.NewReader([]byte("%PDF")))
		require.NoError(t, err)
		assert.Equal(t, roster.LevelInfo, notice.Level)
		assert.Equal(t, roster.StateIdle, sess.State())
		assert.Empty(t, sess.Status().Candidates)

		_, err = sess.Commit(context.Background(), "op-1")
		assert.Error(t, err)
		assert.Empty(t, ins.codes())
	})

	t.Run("unsupported keeps the batch", func(t *testing.T) {
		sess := newSession(t, &fakeInserter{})
		_, err := sess.Load("roster.xlsx", rosterFile(t))
		require.NoError(t, err)

		notice, err := sess.Load("roster.txt", bytes.NewReader([]byte("x")))
		assert.Equal(t, roster.ErrUnsupportedFormat, errors.Cause(err))
		assert.Equal(t, roster.LevelError, notice.Level)
		assert.Equal(t, roster.StateExtracted, sess.State())
		assert.Len(t, sess.Status().Candidates, 2)
	})

	t.Run("one load at a time", func(t *testing.T) {
		sess := newSession(t, &fakeInserter{})
		src := newGatedSource(rosterFile(t))

		loaded := make(chan error, 1)
		go func() {
			_, err := sess.Load("first.xlsx", src)
			loaded <- err
		}()
		<-src.started

		notice, err := sess.Load("second.xlsx", rosterFile(t))
		assert.Equal(t, roster.ErrLoadInProgress, errors.Cause(err))
		assert.Equal(t, roster.LevelError, notice.Level)
		assert.Equal(t, roster.ErrLoadInProgress, errors.Cause(sess.Discard()))

		close(src.release)
		require.NoError(t, <-loaded)
		assert.Equal(t, roster.StateExtracted, sess.State())
		assert.Equal(t, "first.xlsx", sess.FileName())
		assert.Len(t, sess.Status().Candidates, 2)

		_, err = sess.Load("second.xlsx", rosterFile(t))
		require.NoError(t, err)
		assert.Equal(t, "second.xlsx", sess.FileName())
	})

	t.Run("empty sheet clears the batch", func(t *testing.T) {
		sess := newSession(t, &fakeInserter{})
		_, err := sess.Load("roster.xlsx", rosterFile(t))
		require.NoError(t, err)

		_, err = sess.Load("empty.xlsx", testutil.XLSX(t, [][]interface{}{{codeLabel}}))
		assert.Equal(t, roster.ErrEmptySheet, errors.Cause(err))
		assert.Equal(t, roster.StateIdle, sess.State())
		assert.Empty(t, sess.Status().Candidates)
	})
}

func TestSession_StartCommit(t *testing.T) {
	t.Run("no valid records", func(t *testing.T) {
		ins := &fakeInserter{}
		sess := newSession(t, ins)
		src := testutil.XLSX(t, [][]interface{}{{codeLabel, nameLabel}, {"S1", ""}})
		_, err := sess.Load("roster.xlsx", src)
		require.NoError(t, err)

		err = sess.StartCommit(context.Background(), "op-1")
		assert.Equal(t, roster.ErrNoValidRecords, errors.Cause(err))
		assert.Equal(t, roster.StateExtracted, sess.State())
		assert.Empty(t, ins.codes())
	})

	t.Run("no actor", func(t *testing.T) {
		sess := newSession(t, &fakeInserter{})
		_, err := sess.Load("roster.xlsx", rosterFile(t))
		require.NoError(t, err)

		err = sess.StartCommit(context.Background(), "")
		assert.Equal(t, roster.ErrNoActor, errors.Cause(err))
		assert.Equal(t, roster.StateExtracted, sess.State())
	})

	t.Run("not reentrant", func(t *testing.T) {
		started, release := make(chan struct{}), make(chan struct{})
		ins := &fakeInserter{onInsert: func(n int) {
			if n == 1 {
				close(started)
				<-release
			}
		}}
		sess := newSession(t, ins)
		_, err := sess.Load("roster.xlsx", rosterFile(t))
		require.NoError(t, err)

		require.NoError(t, sess.StartCommit(context.Background(), "op-1"))
		<-started
		assert.Equal(t, roster.StateCommitting, sess.State())
		assert.Equal(t, roster.ErrCommitInProgress, errors.Cause(sess.StartCommit(context.Background(), "op-1")))
		assert.Equal(t, roster.ErrCommitInProgress, errors.Cause(sess.Discard()))
		_, err = sess.Load("roster.xlsx", rosterFile(t))
		assert.Equal(t, roster.ErrCommitInProgress, errors.Cause(err))

		close(release)
		out, err := sess.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, out.Succeeded)
		assert.Len(t, ins.codes(), 1)
	})
}

func TestSession_Cancel(t *testing.T) {
	var sess *roster.Session
	ins := &fakeInserter{onInsert: func(n int) {
		if n == 2 {
			assert.True(t, sess.Cancel())
		}
	}}
	sess = newSession(t, ins)
	src := testutil.XLSX(t, [][]interface{}{
		{codeLabel, nameLabel},
		{"S1", "a"}, {"S2", "b"}, {"S3", "c"},
	})
	_, err := sess.Load("roster.xlsx", src)
	require.NoError(t, err)

	out, err := sess.Commit(context.Background(), "op-1")
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 1, out.NotAttempted())
	assert.Equal(t, roster.LevelWarning, out.Notice.Level)
	assert.False(t, sess.Cancel(), "nothing left to cancel")
}

func TestSession_Subscribe(t *testing.T) {
	release := make(chan struct{})
	ins := &fakeInserter{onInsert: func(n int) {
		if n == 1 {
			<-release
		}
	}}
	sess := newSession(t, ins)
	src := testutil.XLSX(t, [][]interface{}{
		{codeLabel, nameLabel},
		{"S1", "a"}, {"S2", "b"},
	})
	_, err := sess.Load("roster.xlsx", src)
	require.NoError(t, err)

	// not committing: current progress then closed
	updates, _ := sess.Subscribe()
	var n int
	for range updates {
		n++
	}
	assert.Equal(t, 1, n)

	require.NoError(t, sess.StartCommit(context.Background(), "op-1"))
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	close(release)

	var last roster.Progress
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case p, ok := <-updates:
			if !ok {
				done = true
				break
			}
			last = p
		case <-timeout:
			t.Fatal("progress stream was not closed")
		}
	}
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, 2, last.Succeeded)
}

func TestRegistry(t *testing.T) {
	committer, _ := newCommitter(t, &fakeInserter{})
	reg := roster.NewRegistry(newExtractor(), committer, time.Hour)

	sess := reg.New("op-1")
	got, err := reg.Get(sess.ID, "op-1")
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = reg.Get(sess.ID, "op-2")
	assert.Equal(t, roster.ErrSessionNotFound, errors.Cause(err), "sessions belong to their operator")

	assert.Equal(t, 0, reg.Evict())
	require.NoError(t, reg.Remove(sess.ID, "op-1"))
	_, err = reg.Get(sess.ID, "op-1")
	assert.Equal(t, roster.ErrSessionNotFound, errors.Cause(err))

	short := roster.NewRegistry(newExtractor(), committer, time.Nanosecond)
	short.New("op-1")
	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, short.Evict())
	assert.Equal(t, 0, short.Len())
}
