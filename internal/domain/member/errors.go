package member

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrInvalidEmail      = errors.New("invalid email")
	ErrMissingFullName   = errors.New("missing full name")
	ErrMemberNotFound    = errors.New("member not found")
	ErrDuplicateMember   = errors.New("member already exists")
	ErrMemberRejected    = errors.New("member rejected by store constraint")
	ErrImportNotFound    = errors.New("import batch not found")
	ErrInvalidTransition = errors.New("invalid import status transition")
	ErrCounterOverflow   = errors.New("import counters exceed total rows")
	ErrNegativeCounter   = errors.New("import counters must be non-negative")
	ErrMissingBatchID    = errors.New("import batch id is required")
	ErrMissingUploader   = errors.New("import uploader is required")

	ErrUnknownImportStatus = errors.New("unknown import status")

	ErrPreviewNotFound = errors.New("preview not found")

	ErrTokenNotFound    = errors.New("activation token not found")
	ErrTokenExpired     = errors.New("activation token expired")
	ErrTokenSuperseded  = errors.New("activation token superseded")
	ErrTokenNotPending  = errors.New("activation token is not pending")
	ErrAlreadyActivated = errors.New("member already activated")
)

// FormatError rejects a file whose extension or content is not a readable table.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "unsupported spreadsheet: " + e.Reason
}

type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file is %d bytes, limit is %d bytes", e.Size, e.Limit)
}

type RowLimitError struct {
	Rows  int
	Limit int
}

func (e *RowLimitError) Error() string {
	return fmt.Sprintf("file has %d data rows, limit is %d", e.Rows, e.Limit)
}

// IsInputError reports whether err rejects the upload itself, before any row
// is looked at.
func IsInputError(err error) bool {
	var formatErr *FormatError
	var sizeErr *SizeLimitError
	var rowErr *RowLimitError
	return errors.As(err, &formatErr) || errors.As(err, &sizeErr) || errors.As(err, &rowErr)
}
