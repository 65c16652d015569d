package member_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func referenceData() domain.ReferenceData {
	return domain.ReferenceData{
		Provinces: []domain.ReferenceItem{
			{ID: 1, Name: "Jawa Barat"},
			{ID: 2, Name: "Jawa Timur"},
			{ID: 3, Name: "Bali"},
		},
		Universities: []domain.ReferenceItem{
			{ID: 10, Name: "Universitas Indonesia"},
			{ID: 11, Name: "Institut Teknologi Bandung"},
		},
		EmploymentStatuses: []domain.ReferenceItem{
			{ID: 20, Name: "Employed"},
			{ID: 21, Name: "Student"},
			{ID: 22, Name: "student"},
		},
		StudyPrograms: []domain.ReferenceItem{
			{ID: 30, Name: "Informatika"},
		},
		SalaryRanges: []domain.SalaryRange{
			{ID: 40, Name: "< 5 juta", Min: decimal.Zero, Max: decimal.NewNullDecimal(decimal.NewFromInt(4_999_999))},
			{ID: 41, Name: "5-10 juta", Min: decimal.NewFromInt(5_000_000), Max: decimal.NewNullDecimal(decimal.NewFromInt(10_000_000))},
			{ID: 42, Name: "> 10 juta", Min: decimal.NewFromInt(10_000_001)},
		},
	}
}

type fakeReferences struct {
	data  domain.ReferenceData
	err   error
	calls int
}

func (f *fakeReferences) LoadReferenceData(ctx context.Context) (domain.ReferenceData, error) {
	f.calls++
	if f.err != nil {
		return domain.ReferenceData{}, f.err
	}
	return f.data, nil
}

// fakeMembers plays both the member query repository and the writer.
type fakeMembers struct {
	mu        sync.Mutex
	byID      map[string]domain.Member
	createErr error
	findErr   error
	findCalls int
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byID: make(map[string]domain.Member)}
}

func (f *fakeMembers) add(m domain.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[m.ID] = m
}

func (f *fakeMembers) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.Member{}, err
	}
	if f.createErr != nil {
		return domain.Member{}, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == m.Email || existing.MemberNumber == m.MemberNumber {
			return domain.Member{}, domain.ErrDuplicateMember
		}
	}
	m.CreatedAt = time.Now().UTC()
	f.byID[m.ID] = m
	return m, nil
}

func (f *fakeMembers) GetByID(ctx context.Context, id string) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMembers) FindExisting(ctx context.Context, emails []string, numbers []string) (domain.ExistingIdentifiers, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return domain.ExistingIdentifiers{}, f.findErr
	}
	out := domain.ExistingIdentifiers{Emails: map[string]struct{}{}, MemberNumbers: map[string]struct{}{}}
	for _, m := range f.byID {
		out.Emails[m.Email] = struct{}{}
		out.MemberNumbers[m.MemberNumber] = struct{}{}
	}
	return out, nil
}

func (f *fakeMembers) activate(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID[id]
	m.Status = domain.MemberActive
	m.ActivatedAt = &at
	f.byID[id] = m
}

func (f *fakeMembers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeMembers) byEmail(email string) (domain.Member, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byID {
		if m.Email == email {
			return m, true
		}
	}
	return domain.Member{}, false
}

type fakePreviews struct {
	mu      sync.Mutex
	reports map[string]domain.PreviewReport
	claimed map[string]bool
}

func newFakePreviews() *fakePreviews {
	return &fakePreviews{reports: map[string]domain.PreviewReport{}, claimed: map[string]bool{}}
}

func (f *fakePreviews) Save(ctx context.Context, report domain.PreviewReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[report.FileKey] = report
	delete(f.claimed, report.FileKey)
	return nil
}

func (f *fakePreviews) Load(ctx context.Context, key string) (domain.PreviewReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[key]
	if !ok {
		return domain.PreviewReport{}, domain.ErrPreviewNotFound
	}
	return report, nil
}

func (f *fakePreviews) Claim(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakePreviews) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	return nil
}

type fakeFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string][]byte{}}
}

func (f *fakeFiles) Save(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = append([]byte(nil), data...)
	return name, nil
}

func (f *fakeFiles) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[handle]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fakeBatches applies the domain state machine to an in-memory copy, the
// way the database repository does inside its transactions. Like Postgres it
// refuses error messages that are not valid UTF-8.
type fakeBatches struct {
	mu        sync.Mutex
	batches   map[string]domain.ImportBatch
	failOn    string
	failErr   error
	abortedBy string
}

var errInvalidEncoding = errors.New("invalid byte sequence for encoding UTF8")

func newFakeBatches() *fakeBatches {
	return &fakeBatches{batches: map[string]domain.ImportBatch{}}
}

func (f *fakeBatches) fail(op string) error {
	if f.failOn == op {
		return f.failErr
	}
	return nil
}

func (f *fakeBatches) Create(ctx context.Context, b domain.ImportBatch) (domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("create"); err != nil {
		return domain.ImportBatch{}, err
	}
	f.batches[b.ID] = b
	return b, nil
}

func (f *fakeBatches) Get(ctx context.Context, id string) (domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return domain.ImportBatch{}, domain.ErrImportNotFound
	}
	return b, nil
}

func (f *fakeBatches) List(ctx context.Context, filter domain.ImportBatchFilter) ([]domain.ImportBatch, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ImportBatch
	for _, b := range f.batches {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.Kind != "" && b.Kind != filter.Kind {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeBatches) update(ctx context.Context, id, op string, fn func(b *domain.ImportBatch) error) (domain.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return domain.ImportBatch{}, err
	}
	if err := f.fail(op); err != nil {
		return domain.ImportBatch{}, err
	}
	b, ok := f.batches[id]
	if !ok {
		return domain.ImportBatch{}, domain.ErrImportNotFound
	}
	if err := fn(&b); err != nil {
		return domain.ImportBatch{}, err
	}
	f.batches[id] = b
	return b, nil
}

func (f *fakeBatches) Start(ctx context.Context, id string) error {
	_, err := f.update(ctx, id, "start", func(b *domain.ImportBatch) error { return b.Start(time.Now().UTC()) })
	return err
}

func (f *fakeBatches) RecordSuccess(ctx context.Context, id string) error {
	_, err := f.update(ctx, id, "success", func(b *domain.ImportBatch) error { return b.RecordSuccess() })
	return err
}

func (f *fakeBatches) RecordFailure(ctx context.Context, id string, entry domain.ImportError) error {
	if !utf8.ValidString(entry.Message) {
		return errInvalidEncoding
	}
	_, err := f.update(ctx, id, "failure", func(b *domain.ImportBatch) error { return b.RecordFailure(entry) })
	return err
}

func (f *fakeBatches) RecordSkipped(ctx context.Context, id string, duplicate bool, entry *domain.ImportError) error {
	if entry != nil && !utf8.ValidString(entry.Message) {
		return errInvalidEncoding
	}
	_, err := f.update(ctx, id, "skipped", func(b *domain.ImportBatch) error { return b.RecordSkipped(duplicate, entry) })
	return err
}

func (f *fakeBatches) Finish(ctx context.Context, id string) (domain.ImportBatch, error) {
	return f.update(ctx, id, "finish", func(b *domain.ImportBatch) error { return b.Finish(time.Now().UTC()) })
}

func (f *fakeBatches) Abort(ctx context.Context, id string, reason string) (domain.ImportBatch, error) {
	f.abortedBy = reason
	return f.update(ctx, id, "abort", func(b *domain.ImportBatch) error { return b.Abort(reason, time.Now().UTC()) })
}

func (f *fakeBatches) only() domain.ImportBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		return b
	}
	return domain.ImportBatch{}
}

func (f *fakeBatches) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeTokens struct {
	mu         sync.Mutex
	tokens     []domain.ActivationToken
	members    *fakeMembers
	replaceErr error
}

func newFakeTokens(members *fakeMembers) *fakeTokens {
	return &fakeTokens{members: members}
}

func (f *fakeTokens) Replace(ctx context.Context, token domain.ActivationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	for i := range f.tokens {
		if f.tokens[i].MemberID == token.MemberID && f.tokens[i].Status == domain.TokenPending {
			at := token.IssuedAt
			f.tokens[i].Status = domain.TokenSuperseded
			f.tokens[i].SupersededAt = &at
			f.tokens[i].SupersededBy = token.ID
		}
	}
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeTokens) FindByHash(ctx context.Context, hash string) (domain.ActivationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return domain.ActivationToken{}, domain.ErrTokenNotFound
}

func (f *fakeTokens) MarkActivated(ctx context.Context, token domain.ActivationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tokens {
		if f.tokens[i].ID != token.ID {
			continue
		}
		if f.tokens[i].Status != domain.TokenPending {
			return domain.ErrTokenNotPending
		}
		f.tokens[i] = token
		f.members.activate(token.MemberID, *token.ActivatedAt)
		return nil
	}
	return domain.ErrTokenNotFound
}

func (f *fakeTokens) CurrentForBatch(ctx context.Context, batchID string) ([]domain.ActivationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActivationToken
	for _, t := range f.tokens {
		if t.Status == domain.TokenSuperseded {
			continue
		}
		m, err := f.members.GetByID(ctx, t.MemberID)
		if err != nil || m.ImportBatchID != batchID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTokens) all() []domain.ActivationToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ActivationToken(nil), f.tokens...)
}

type fakeMailer struct {
	mu     sync.Mutex
	emails []domain.ActivationEmail
	err    error
	onSend func()
}

func (f *fakeMailer) RequestActivationEmail(ctx context.Context, email domain.ActivationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSend != nil {
		f.onSend()
	}
	if f.err != nil {
		return f.err
	}
	f.emails = append(f.emails, email)
	return nil
}

func (f *fakeMailer) lastFor(memberID string) (domain.ActivationEmail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.emails) - 1; i >= 0; i-- {
		if f.emails[i].MemberID == memberID {
			return f.emails[i], true
		}
	}
	return domain.ActivationEmail{}, false
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emails)
}
