package roster

import "github.com/pkg/errors"

var (
	// errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadableFile    = errors.New("file could not be read")
	ErrEmptySheet        = errors.New("sheet has no data rows")
	ErrNotExtracted      = errors.New("no extracted batch to commit")
	ErrNoValidRecords    = errors.New("no valid records to commit")
	ErrCommitInProgress  = errors.New("a commit is already in progress")
	ErrLoadInProgress    = errors.New("a file is already being loaded")
	ErrNoActor           = errors.New("operator identity is required to commit")
)

// IsPrecondition reports whether `err` is a commit precondition failure (nothing was attempted).
func IsPrecondition(err error) bool {
	switch errors.Cause(err) {
	case ErrNotExtracted, ErrNoValidRecords, ErrCommitInProgress, ErrNoActor:
		return true
	}
	return false
}
