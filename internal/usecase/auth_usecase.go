package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ゲストトークンの接頭辞
const guestTokenPrefix = "guest_"

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, name string, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// handlerがJSONにして返す
type LoginOutput struct {
	User  model.User  `json:"user"`
	Token AccessToken `json:"token"`
}

type GuestTokenOutput struct {
	GuestID string `json:"guest_id"`
}

type AuthUsecase struct {
	users     repo.UserRepository
	validator AuthValidator
	issuer    AccessTokenIssuer
	idGen     IDGenerator
	clock     Clock
	log       *zap.Logger
}

func NewAuthUsecase(
	users repo.UserRepository,
	validator AuthValidator,
	issuer AccessTokenIssuer,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
) *AuthUsecase {
	if idGen == nil {
		idGen = UUIDGenerator{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthUsecase{
		users:     users,
		validator: validator,
		issuer:    issuer,
		idGen:     idGen,
		clock:     clock,
		log:       log,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, in.Name, in.Email, in.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(pwHash),
		Role:         model.RoleCustomer,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, NewError(KindConflict, "email already used")
		}
		return nil, internalError("create user", err)
	}

	u.log.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateLogin(ctx, in.Email, in.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindUnauthorized, "invalid email or password")
	}
	if err != nil {
		return nil, internalError("find user", err)
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, NewError(KindUnauthorized, "invalid email or password")
	}

	now := u.clock.Now()
	token, exp, err := u.issuer.Issue(user, now)
	if err != nil {
		return nil, internalError("issue token", err)
	}

	return &LoginOutput{
		User: *user,
		Token: AccessToken{
			AccessToken: token,
			ExpiresIn:   int(exp.Sub(now) / time.Second),
		},
	}, nil
}

// IssueGuestToken は新しいゲストトークンを払い出す（保存はしない）。
func (u *AuthUsecase) IssueGuestToken() GuestTokenOutput {
	return GuestTokenOutput{GuestID: guestTokenPrefix + u.idGen.NewID()}
}

// Me はトークンの持ち主を返す。
func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}
	if err != nil {
		return nil, internalError("find user", err)
	}
	return user, nil
}
