package member

import (
	"context"
	"io"
)

type ImportBatchRepository interface {
	Create(ctx context.Context, batch ImportBatch) (ImportBatch, error)
	Get(ctx context.Context, id string) (ImportBatch, error)
	List(ctx context.Context, filter ImportBatchFilter) ([]ImportBatch, int64, error)
	Start(ctx context.Context, id string) error
	RecordSuccess(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, entry ImportError) error
	RecordSkipped(ctx context.Context, id string, duplicate bool, entry *ImportError) error
	Finish(ctx context.Context, id string) (ImportBatch, error)
	Abort(ctx context.Context, id string, reason string) (ImportBatch, error)
}

type MemberWriter interface {
	Create(ctx context.Context, m Member) (Member, error)
}

type MemberQueryRepository interface {
	GetByID(ctx context.Context, id string) (Member, error)
	FindExisting(ctx context.Context, emails []string, memberNumbers []string) (ExistingIdentifiers, error)
}

type ActivationTokenRepository interface {
	// Replace supersedes every pending token of the member and stores token, atomically.
	Replace(ctx context.Context, token ActivationToken) error
	FindByHash(ctx context.Context, hash string) (ActivationToken, error)
	MarkActivated(ctx context.Context, token ActivationToken) error
	CurrentForBatch(ctx context.Context, batchID string) ([]ActivationToken, error)
}

type ReferenceSource interface {
	LoadReferenceData(ctx context.Context) (ReferenceData, error)
}

type PreviewStore interface {
	Save(ctx context.Context, report PreviewReport) error
	Load(ctx context.Context, fileKey string) (PreviewReport, error)
	// Claim marks a preview as being committed. It returns false when another
	// commit already claimed it.
	Claim(ctx context.Context, fileKey string) (bool, error)
	// Release drops a claim whose commit never created a batch.
	Release(ctx context.Context, fileKey string) error
}

type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
}

type ActivationMailer interface {
	RequestActivationEmail(ctx context.Context, email ActivationEmail) error
}
