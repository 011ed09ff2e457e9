// Package cleanup borra periodicamente los registros de verificacion vencidos.
// Con la purga de enlaces activa tambien elimina las cuentas sin verificar a
// las que pertenecian.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"account-svc/internal/domain"
	"account-svc/internal/metrics"
	"account-svc/internal/repository"
)

// Job elimina registros vencidos hace mas de Grace.
type Job struct {
	records  repository.VerificationRepository
	accounts repository.AccountRepository
	logger   *zap.Logger
	metrics  metrics.Recorder

	Grace             time.Duration
	PurgeLinkAccounts bool

	now func() time.Time
}

func NewJob(
	records repository.VerificationRepository,
	accounts repository.AccountRepository,
	logger *zap.Logger,
	recorder metrics.Recorder,
	grace time.Duration,
	purgeLinkAccounts bool,
) *Job {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Job{
		records:           records,
		accounts:          accounts,
		logger:            logger,
		metrics:           recorder,
		Grace:             grace,
		PurgeLinkAccounts: purgeLinkAccounts,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Run ejecuta una pasada. Es idempotente: sin registros vencidos no hace nada.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().Add(-j.Grace)

	removed, err := j.records.DeleteExpired(ctx, cutoff)
	if err != nil {
		j.logger.Error("cleanup expired verifications failed", zap.Error(err), zap.Time("cutoff", cutoff))
		return fmt.Errorf("delete expired verifications: %w", err)
	}

	purged := 0
	if j.PurgeLinkAccounts {
		for _, userID := range linkOwners(removed) {
			ok, err := j.purgeAccount(ctx, userID)
			if err != nil {
				j.logger.Warn("purge expired account failed", zap.Error(err), zap.String("user_id", userID))
				continue
			}
			if ok {
				purged++
			}
		}
	}

	j.metrics.RecordCleanup(len(removed))
	j.logger.Info("verification cleanup finished",
		zap.Int("deleted_records", len(removed)),
		zap.Int("purged_accounts", purged),
		zap.Duration("grace", j.Grace),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// purgeAccount borra la cuenta solo si sigue sin verificar y no tiene otro
// registro pendiente.
func (j *Job) purgeAccount(ctx context.Context, userID string) (bool, error) {
	account, err := j.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if account.Verified {
		return false, nil
	}
	pending, err := j.records.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(pending) > 0 {
		return false, nil
	}
	if err := j.accounts.DeleteByID(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Start corre Run cada interval hasta que ctx se cancela.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		j.logger.Info("verification cleanup disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("verification cleanup started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("verification cleanup stopped")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

func linkOwners(records []domain.Verification) []string {
	seen := make(map[string]struct{}, len(records))
	owners := make([]string, 0, len(records))
	for _, r := range records {
		if r.Kind != domain.VerificationLink {
			continue
		}
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		owners = append(owners, r.UserID)
	}
	return owners
}
