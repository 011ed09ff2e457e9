package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"account-svc/internal/domain"
	"account-svc/internal/metrics"
	"account-svc/internal/repository"
	"account-svc/internal/security"
)

// Issuer emite un secreto de verificacion para una cuenta recien creada.
type Issuer interface {
	Issue(ctx context.Context, kind domain.VerificationKind, account domain.Account) (domain.Verification, error)
}

// AccountService coordina registro e inicio de sesion.
type AccountService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
	hasher   security.Hasher
	issuer   Issuer
	mode     domain.VerificationKind
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewAccountService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	hasher security.Hasher,
	issuer Issuer,
	mode domain.VerificationKind,
	recorder metrics.Recorder,
) *AccountService {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if mode != domain.VerificationLink {
		mode = domain.VerificationOTP
	}
	return &AccountService{
		logger:   logger,
		accounts: accounts,
		hasher:   hasher,
		issuer:   issuer,
		mode:     mode,
		metrics:  recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignUp crea una cuenta sin verificar y emite la verificacion. Responde una
// sola vez: si la emision falla la cuenta ya existe y se devuelve junto con
// un DependencyError para que el cliente pida un reenvio.
func (s *AccountService) SignUp(ctx context.Context, input SignUpInput) (domain.Account, error) {
	account, err := s.createAccount(ctx, input)
	if err != nil {
		s.metrics.RecordSignup(Outcome(err))
		return domain.Account{}, err
	}

	if _, err := s.issuer.Issue(ctx, s.mode, account); err != nil {
		s.logger.Error("issue verification after signup failed",
			zap.Error(err),
			zap.String("user_id", account.ID),
			zap.String("mode", string(s.mode)),
		)
		s.metrics.RecordSignup("issue_failed")
		return account, dependency(StageSignupVerification, err)
	}

	s.metrics.RecordSignup(Outcome(nil))
	return account, nil
}

func (s *AccountService) createAccount(ctx context.Context, input SignUpInput) (domain.Account, error) {
	in := input.trimmed()
	if err := in.validate(); err != nil {
		return domain.Account{}, err
	}

	if _, err := s.accounts.FindByEmail(ctx, in.Email); err == nil {
		return domain.Account{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Error("check existing user failed", zap.Error(err))
		return domain.Account{}, dependency(StageCheckExisting, err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return domain.Account{}, dependency(StageHashPassword, err)
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
		DateOfBirth:  in.DateOfBirth,
		Verified:     false,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.Account{}, ErrEmailTaken
		}
		s.logger.Error("save user account failed", zap.Error(err))
		return domain.Account{}, dependency(StageSaveAccount, err)
	}
	return account, nil
}

// SignIn valida credenciales contra una cuenta verificada. Un email
// inexistente y uno registrado responden igual; una cuenta sin verificar
// tiene su propio error.
func (s *AccountService) SignIn(ctx context.Context, emailAddr, password string) (domain.Account, error) {
	account, err := s.signIn(ctx, emailAddr, password)
	s.metrics.RecordSignin(Outcome(err))
	return account, err
}

func (s *AccountService) signIn(ctx context.Context, emailAddr, password string) (domain.Account, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.Account{}, ErrEmptyCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrInvalidCredentials
		}
		s.logger.Error("lookup account for signin failed", zap.Error(err))
		return domain.Account{}, dependency(StageLookupAccount, err)
	}
	if !account.Verified {
		return domain.Account{}, ErrNotVerified
	}

	ok, err := s.hasher.Compare(password, account.PasswordHash)
	if err != nil {
		s.logger.Error("compare password failed", zap.Error(err), zap.String("user_id", account.ID))
		return domain.Account{}, dependency(StageCompareSecret, err)
	}
	if !ok {
		return domain.Account{}, ErrInvalidPassword
	}
	return account, nil
}
