package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	"github.com/mohammadpnp/member-import/internal/config"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/cache"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/migrations"
	infrafile "github.com/mohammadpnp/member-import/internal/infrastructure/file"
	"github.com/mohammadpnp/member-import/internal/infrastructure/notify"
	"github.com/mohammadpnp/member-import/internal/infrastructure/report"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/member-import/internal/infrastructure/spreadsheet"
)

// Services holds the wired use cases and the connections behind them.
type Services struct {
	Preview    app.PreviewMembers
	Commit     app.CommitMembers
	History    *app.ImportHistory
	Activation *app.ActivationManager
	GetMember  app.GetMember

	DB    *gorm.DB
	Redis *redis.Client

	pool   *pgxpool.Pool
	mailer notify.Mailer
}

// OpenDatabase connects gorm and applies pending migrations when migrate is set.
func OpenDatabase(ctx context.Context, databaseURL string, migrate bool, logger logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if !migrate {
		return db, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	applied, err := migrations.Up(ctx, sqlDB)
	if err != nil {
		return nil, err
	}
	logger.WithField("applied", applied).Info("migrations up to date")
	return db, nil
}

func NewServices(ctx context.Context, cfg *config.Configuration, logger logrus.FieldLogger) (*Services, error) {
	db, err := OpenDatabase(ctx, cfg.DatabaseURL, cfg.AutoMigrate, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	s := &Services{DB: db, pool: pool}

	var previews domain.PreviewStore
	if cfg.Redis.Addr != "" {
		s.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		previews = cache.NewRedisPreviewStore(s.Redis, cfg.Import.PreviewTTL)
	} else {
		logger.Warn("REDIS_ADDR not set, previews are kept in process memory")
		previews = cache.NewMemoryPreviewStore(cfg.Import.PreviewTTL)
	}

	s.mailer, err = notify.New(cfg.NotifyConfig(), logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create mailer: %w", err)
	}

	batches := repository.NewImportBatchRepository(db)
	memberQuery := repository.NewMemberQueryRepository(db)
	memberWriter := repository.NewMemberWriteRepository(pool)
	tokens := repository.NewActivationTokenRepository(db)
	references := repository.NewReferenceRepository(db)
	files := infrafile.NewLocalStore(cfg.Import.UploadDir)

	s.Activation = app.NewActivationManager(tokens, memberQuery, s.mailer, app.ActivationConfig{
		TokenTTL: cfg.Activation.TokenTTL,
	}, logger)
	s.Preview = app.NewPreviewMembers(
		spreadsheet.NewReader(cfg.Import.Limits()),
		references,
		memberQuery,
		previews,
		files,
		app.PreviewConfig{ResolveWorkers: cfg.Import.ResolveWorkers},
		logger,
	)
	s.Commit = app.NewCommitMembers(previews, batches, memberWriter, s.Activation, logger)
	s.History = app.NewImportHistory(batches, files, map[string]app.ErrorReportWriter{
		"csv":  report.CSVWriter{},
		"xlsx": report.XLSXWriter{},
	})
	s.GetMember = app.NewGetMember(memberQuery)

	return s, nil
}

func (s *Services) Close() {
	if s.mailer != nil {
		_ = s.mailer.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
