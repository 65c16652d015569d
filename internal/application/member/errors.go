package member

import "github.com/go-faster/errors"

var (
	ErrInvalidRowSelected   = errors.New("selected row is not valid")
	ErrUnknownRow           = errors.New("selected row is not in the preview")
	ErrPreviewConsumed      = errors.New("preview was already committed")
	ErrBatchFinished        = errors.New("import batch already finished")
	ErrSystemFailure        = errors.New("import aborted by system error")
	ErrReferenceUnavailable = errors.New("reference data unavailable")
	ErrStoreUpload          = errors.New("failed to store uploaded file")
	ErrUnknownReportFormat  = errors.New("unknown error report format")
	ErrSourceUnavailable    = errors.New("import source file unavailable")
	ErrInvalidImportID      = errors.New("invalid import id")
	ErrInvalidMemberID      = errors.New("invalid member id")
	ErrMemberNotFound       = errors.New("member not found")
	ErrGetMember            = errors.New("failed to get member")
)
