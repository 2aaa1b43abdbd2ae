package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.UserResponse, error)
	SendOtp(ctx context.Context, req *dto.SendOtpRequest) (*dto.SendOtpResponse, error)
	VerifyOtp(ctx context.Context, req *dto.VerifyOtpRequest) (*dto.AuthResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.SendOtpResponse, error)
	ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error
}

type AuthServiceConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	OTPTTL     time.Duration
	BcryptCost int
	// ExposeOtp returns the code in the response body. Development only.
	ExposeOtp bool
}

type authService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	cfg          AuthServiceConfig
	logger       logger.ILogger
	now          func() time.Time
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, emailService mailer.IEmailService, cfg AuthServiceConfig, log logger.ILogger) IAuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		uowFactory:   uowFactory,
		emailService: emailService,
		cfg:          cfg,
		logger:       log,
		now:          time.Now,
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", constant.OtpLength, n), nil
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByMobileNumber{MobileNumber: req.MobileNumber})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.BadRequest("Mobile number already registered")
	}

	var passwordHash *string
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
		hashStr := string(hash)
		passwordHash = &hashStr
	}

	now := s.now()
	user := &entity.User{
		Id:           uuid.New(),
		MobileNumber: req.MobileNumber,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Tier:         entity.TierBasic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup.
		if apperror.IsUniqueViolation(err) {
			return nil, apperror.BadRequest("Mobile number already registered")
		}
		return nil, err
	}

	s.logger.Info("Auth", "User registered", map[string]interface{}{"user_id": user.Id})
	res := toUserResponse(user)
	return &res, nil
}

func (s *authService) SendOtp(ctx context.Context, req *dto.SendOtpRequest) (*dto.SendOtpResponse, error) {
	return s.issueOtp(ctx, req.MobileNumber)
}

func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) (*dto.SendOtpResponse, error) {
	return s.issueOtp(ctx, req.MobileNumber)
}

func (s *authService) issueOtp(ctx context.Context, mobileNumber string) (*dto.SendOtpResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByMobileNumber{MobileNumber: mobileNumber})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	code, err := generateOTP()
	if err != nil {
		return nil, err
	}

	now := s.now()
	otp := &entity.Otp{
		Id:        uuid.New(),
		UserId:    user.Id,
		Code:      code,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		CreatedAt: now,
	}
	if err := uow.UserRepository().CreateOtp(ctx, otp); err != nil {
		return nil, err
	}

	if user.Email != nil && *user.Email != "" {
		email := *user.Email
		go func() {
			if err := s.emailService.SendOTP(email, code, s.cfg.OTPTTL); err != nil {
				s.logger.Error("Auth", "Failed to send OTP email", map[string]interface{}{
					"user_id": user.Id,
					"error":   err.Error(),
				})
			}
		}()
	}

	res := &dto.SendOtpResponse{
		ExpiresIn: fmt.Sprintf("%d minutes", int(s.cfg.OTPTTL.Minutes())),
		ExpiresAt: otp.ExpiresAt,
	}
	if s.cfg.ExposeOtp {
		res.Otp = code
	}
	return res, nil
}

func (s *authService) VerifyOtp(ctx context.Context, req *dto.VerifyOtpRequest) (*dto.AuthResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByMobileNumber{MobileNumber: req.MobileNumber})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	otp, err := uow.UserRepository().FindLatestOtp(ctx,
		specification.UserOwnedBy{UserID: user.Id},
		specification.ByOtpCode{Code: req.Otp},
		specification.PendingOtp{Now: s.now()},
	)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, apperror.BadRequest("Invalid or expired OTP")
	}

	marked, err := uow.UserRepository().MarkOtpVerified(ctx, otp.Id)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, apperror.BadRequest("Invalid or expired OTP")
	}

	token, err := serverutils.IssueToken(user.Id, s.cfg.JWTSecret, s.cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}

	// Users who signed up without a password may set one directly.
	if user.PasswordHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return apperror.BadRequest("Current password is incorrect")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	hashStr := string(hash)
	user.PasswordHash = &hashStr
	user.UpdatedAt = s.now()

	return uow.UserRepository().Update(ctx, user)
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		Id:               u.Id,
		MobileNumber:     u.MobileNumber,
		Name:             u.Name,
		Email:            u.Email,
		SubscriptionTier: string(u.Tier),
		CreatedAt:        u.CreatedAt,
	}
}
