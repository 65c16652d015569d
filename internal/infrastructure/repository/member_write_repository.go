package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	pgUniqueViolation       = "23505"
	pgIntegrityClassPrefix  = "23"
	constraintUsersEmail    = "users_email_key"
	constraintMembersNumber = "members_member_number_key"
)

// MemberWriteRepository writes one member and its user account per
// transaction, so a rejected row never leaves a half-created account.
type MemberWriteRepository struct {
	pool *pgxpool.Pool
}

func NewMemberWriteRepository(pool *pgxpool.Pool) *MemberWriteRepository {
	return &MemberWriteRepository{pool: pool}
}

func (r *MemberWriteRepository) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Member{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO users (id, email, full_name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
`, m.UserID, m.Email, m.FullName, string(m.Status)); err != nil {
		return domain.Member{}, classifyWriteError(err, m, "insert user")
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
INSERT INTO members (
  id, user_id, member_number, full_name, phone,
  province_id, university_id, employment_status_id, salary_range_id, study_program_id,
  status, import_batch_id, source_row, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
RETURNING created_at
`,
		m.ID, m.UserID, m.MemberNumber, m.FullName, m.Phone,
		m.References.ProvinceID, m.References.UniversityID, m.References.EmploymentStatusID,
		m.References.SalaryRangeID, m.References.StudyProgramID,
		string(m.Status), nullableText(m.ImportBatchID), m.SourceRow,
	).Scan(&createdAt)
	if err != nil {
		return domain.Member{}, classifyWriteError(err, m, "insert member")
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Member{}, fmt.Errorf("commit member: %w", err)
	}

	m.CreatedAt = createdAt
	return m, nil
}

// classifyWriteError turns integrity violations into row errors; everything
// else stays a system error.
func classifyWriteError(err error, m domain.Member, op string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: no row returned", op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraintUsersEmail:
		return fmt.Errorf("%w: email %q is already registered", domain.ErrDuplicateMember, m.Email)
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraintMembersNumber:
		return fmt.Errorf("%w: member number %q is already registered", domain.ErrDuplicateMember, m.MemberNumber)
	case pgErr.Code == pgUniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateMember, pgErr.ConstraintName)
	case strings.HasPrefix(pgErr.Code, pgIntegrityClassPrefix):
		return fmt.Errorf("%w: %s", domain.ErrMemberRejected, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
