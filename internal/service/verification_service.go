package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"account-svc/internal/domain"
	"account-svc/internal/email"
	"account-svc/internal/metrics"
	"account-svc/internal/repository"
	"account-svc/internal/security"
)

const (
	otpDigits = 4
	otpMin    = 1000
	otpMax    = 9999
)

// VerificationPolicy agrupa los parametros configurables del flujo.
type VerificationPolicy struct {
	BaseURL           string
	LinkTTL           time.Duration
	OTPTTL            time.Duration
	PurgeOnLinkExpiry bool
	PurgeOnOTPExpiry  bool
}

func (p VerificationPolicy) ttl(kind domain.VerificationKind) time.Duration {
	if kind == domain.VerificationLink {
		return p.LinkTTL
	}
	return p.OTPTTL
}

func (p VerificationPolicy) purgeOnExpiry(kind domain.VerificationKind) bool {
	if kind == domain.VerificationLink {
		return p.PurgeOnLinkExpiry
	}
	return p.PurgeOnOTPExpiry
}

// VerificationService emite secretos de verificacion y los consume.
type VerificationService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	records  repository.VerificationRepository
	hasher   security.Hasher
	sender   email.Sender
	metrics  metrics.Recorder
	policy   VerificationPolicy

	now     func() time.Time
	newOTP  func() (string, error)
	newLink func(userID string) string
}

func NewVerificationService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	records repository.VerificationRepository,
	hasher security.Hasher,
	sender email.Sender,
	recorder metrics.Recorder,
	policy VerificationPolicy,
) *VerificationService {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if policy.LinkTTL <= 0 {
		policy.LinkTTL = 6 * time.Hour
	}
	if policy.OTPTTL <= 0 {
		policy.OTPTTL = time.Hour
	}
	policy.BaseURL = strings.TrimRight(policy.BaseURL, "/")
	return &VerificationService{
		logger:   logger,
		accounts: accounts,
		records:  records,
		hasher:   hasher,
		sender:   sender,
		metrics:  recorder,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		newOTP:   generateOTP,
		newLink:  generateLinkToken,
	}
}

// Issue genera un secreto del tipo indicado, reemplaza cualquier registro
// previo del usuario y envia el correo. Si el envio falla el registro recien
// creado se elimina y se devuelve un error que envuelve ErrEmailDispatch.
func (s *VerificationService) Issue(ctx context.Context, kind domain.VerificationKind, account domain.Account) (domain.Verification, error) {
	v, err := s.issue(ctx, kind, account)
	s.metrics.RecordIssue(string(kind), Outcome(err))
	return v, err
}

func (s *VerificationService) IssueLink(ctx context.Context, account domain.Account) (domain.Verification, error) {
	return s.Issue(ctx, domain.VerificationLink, account)
}

func (s *VerificationService) IssueOTP(ctx context.Context, account domain.Account) (domain.Verification, error) {
	return s.Issue(ctx, domain.VerificationOTP, account)
}

func (s *VerificationService) issue(ctx context.Context, kind domain.VerificationKind, account domain.Account) (domain.Verification, error) {
	var (
		secret string
		err    error
	)
	switch kind {
	case domain.VerificationOTP:
		secret, err = s.newOTP()
		if err != nil {
			return domain.Verification{}, dependency(StageGenerateSecret, err)
		}
	case domain.VerificationLink:
		secret = s.newLink(account.ID)
	default:
		return domain.Verification{}, fmt.Errorf("unknown verification kind %q", kind)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return domain.Verification{}, dependency(StageHashSecret, err)
	}

	if err := s.records.DeleteByUserID(ctx, account.ID); err != nil {
		return domain.Verification{}, dependency(StageClearVerification, err)
	}

	now := s.now()
	ttl := s.policy.ttl(kind)
	v := domain.Verification{
		ID:         uuid.NewString(),
		UserID:     account.ID,
		Kind:       kind,
		SecretHash: hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := s.records.Insert(ctx, v); err != nil {
		return domain.Verification{}, dependency(StageSaveVerification, err)
	}

	subject, body, err := s.renderEmail(kind, account, secret, ttl)
	if err == nil {
		err = s.sender.Send(ctx, account.Email, subject, body)
	}
	if err != nil {
		s.metrics.RecordEmailFailure(string(kind))
		s.logger.Warn("send verification email failed",
			zap.Error(err),
			zap.String("user_id", account.ID),
			zap.String("kind", string(kind)),
		)
		if _, delErr := s.records.DeleteOne(ctx, account.ID, v.ID); delErr != nil {
			s.logger.Error("rollback verification record failed",
				zap.Error(delErr),
				zap.String("user_id", account.ID),
			)
		}
		return domain.Verification{}, dependency(StageSendEmail, fmt.Errorf("%w: %w", ErrEmailDispatch, err))
	}
	return v, nil
}

func (s *VerificationService) renderEmail(kind domain.VerificationKind, account domain.Account, secret string, ttl time.Duration) (string, string, error) {
	if kind == domain.VerificationLink {
		body, err := email.RenderVerifyLink(email.LinkData{
			Name:    account.Name,
			Link:    s.verifyURL(account.ID, secret),
			Expires: ttl,
		})
		return email.SubjectVerifyLink, body, err
	}
	body, err := email.RenderVerifyOTP(email.OTPData{
		Name:    account.Name,
		Code:    secret,
		Expires: ttl,
	})
	return email.SubjectVerifyOTP, body, err
}

func (s *VerificationService) verifyURL(userID, token string) string {
	return s.policy.BaseURL + "/user/verify/" + url.PathEscape(userID) + "/" + url.PathEscape(token)
}

// Resend vuelve a emitir un secreto para una cuenta aun no verificada.
// Repetirlo deja siempre un unico registro activo.
func (s *VerificationService) Resend(ctx context.Context, kind domain.VerificationKind, userID, emailAddr string) (domain.Verification, error) {
	userID = strings.TrimSpace(userID)
	emailAddr = strings.TrimSpace(emailAddr)
	if userID == "" || emailAddr == "" {
		return domain.Verification{}, ErrEmptyUserDetails
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Verification{}, ErrAccountNotFound
		}
		return domain.Verification{}, dependency(StageLookupAccount, err)
	}
	if account.Email != emailAddr {
		return domain.Verification{}, ErrEmailMismatch
	}
	if account.Verified {
		return domain.Verification{}, ErrAlreadyVerified
	}
	return s.Issue(ctx, kind, account)
}

func (s *VerificationService) ResendOTP(ctx context.Context, userID, emailAddr string) (domain.Verification, error) {
	return s.Resend(ctx, domain.VerificationOTP, userID, emailAddr)
}

func (s *VerificationService) ResendLink(ctx context.Context, userID, emailAddr string) (domain.Verification, error) {
	return s.Resend(ctx, domain.VerificationLink, userID, emailAddr)
}

func (s *VerificationService) VerifyOTP(ctx context.Context, userID, code string) error {
	return s.Consume(ctx, domain.VerificationOTP, userID, code)
}

func (s *VerificationService) VerifyLink(ctx context.Context, userID, token string) error {
	return s.Consume(ctx, domain.VerificationLink, userID, token)
}

// Consume valida el secreto crudo contra el registro pendiente mas reciente.
// Un secreto incorrecto deja el registro intacto; el borrado condicional del
// registro es el punto de commit, asi que solo un consumo concurrente gana.
func (s *VerificationService) Consume(ctx context.Context, kind domain.VerificationKind, userID, secret string) error {
	err := s.consume(ctx, kind, userID, secret)
	s.metrics.RecordConsume(string(kind), Outcome(err))
	return err
}

func (s *VerificationService) consume(ctx context.Context, kind domain.VerificationKind, userID, secret string) error {
	userID = strings.TrimSpace(userID)
	secret = strings.TrimSpace(secret)
	if userID == "" || secret == "" {
		return ErrEmptyVerification
	}

	all, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		return dependency(StageLookupVerification, err)
	}
	pending := make([]domain.Verification, 0, len(all))
	for _, v := range all {
		if v.Kind == kind {
			pending = append(pending, v)
		}
	}
	if len(pending) == 0 {
		return s.noPending(ctx, userID)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	latest := pending[0]

	now := s.now()
	if latest.Expired(now) {
		return s.expire(ctx, kind, userID)
	}

	if kind == domain.VerificationOTP && !isValidOTPCode(secret) {
		return ErrInvalidCode
	}
	ok, err := s.hasher.Compare(secret, latest.SecretHash)
	if err != nil {
		return dependency(StageCompareSecret, err)
	}
	if !ok {
		if kind == domain.VerificationOTP {
			return ErrInvalidCode
		}
		return ErrInvalidLink
	}

	deleted, err := s.records.DeleteOne(ctx, userID, latest.ID)
	if err != nil {
		return dependency(StageClearVerification, err)
	}
	if !deleted {
		return ErrNoPendingVerification
	}

	if err := s.accounts.UpdateVerified(ctx, userID, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		s.logger.Error("mark account verified failed", zap.Error(err), zap.String("user_id", userID))
		// El registro vuelve al store para que el mismo secreto pueda reintentarse.
		if restoreErr := s.records.Insert(ctx, latest); restoreErr != nil {
			s.logger.Error("restore verification record failed",
				zap.Error(restoreErr),
				zap.String("user_id", userID),
			)
		}
		return dependency(StageUpdateAccount, err)
	}

	if err := s.records.DeleteByUserID(ctx, userID); err != nil {
		s.logger.Warn("clear stale verification records failed", zap.Error(err), zap.String("user_id", userID))
	}
	return nil
}

// noPending distingue "ya verificada" de "nunca emitido" cuando es posible.
func (s *VerificationService) noPending(ctx context.Context, userID string) error {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("lookup account for missing verification failed", zap.Error(err), zap.String("user_id", userID))
		}
		return ErrNoPendingVerification
	}
	if account.Verified {
		return ErrAlreadyVerified
	}
	return ErrNoPendingVerification
}

func (s *VerificationService) expire(ctx context.Context, kind domain.VerificationKind, userID string) error {
	if err := s.records.DeleteByUserID(ctx, userID); err != nil {
		return dependency(StageClearVerification, err)
	}
	if !s.policy.purgeOnExpiry(kind) {
		return ErrVerificationExpired
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRegistrationExpired
		}
		return dependency(StageLookupAccount, err)
	}
	if account.Verified {
		return ErrVerificationExpired
	}
	if err := s.accounts.DeleteByID(ctx, userID); err != nil {
		return dependency(StageDeleteAccount, err)
	}
	s.logger.Info("purged unverified account after expired verification",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
	)
	return ErrRegistrationExpired
}

// generateOTP devuelve un codigo uniforme en [1000, 9999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

func generateLinkToken(userID string) string {
	return uuid.NewString() + userID
}
