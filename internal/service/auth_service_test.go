package service

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type sentOtp struct {
	to   string
	code string
}

type capturingMailer struct {
	sent chan sentOtp
}

func (m *capturingMailer) SendOTP(toEmail, otp string, ttl time.Duration) error {
	m.sent <- sentOtp{to: toEmail, code: otp}
	return nil
}

func newTestAuth(store *memoryStore, mailer *capturingMailer) *authService {
	return NewAuthService(&fakeFactory{store: store}, mailer, AuthServiceConfig{
		JWTSecret:  testSecret,
		JWTExpiry:  time.Hour,
		OTPTTL:     5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
		ExposeOtp:  true,
	}, logger.NewNopLogger()).(*authService)
}

func strPtr(s string) *string { return &s }

func TestGenerateOTP(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestSignup(t *testing.T) {
	store := newMemoryStore()
	auth := newTestAuth(store, &capturingMailer{sent: make(chan sentOtp, 1)})
	ctx := context.Background()

	res, err := auth.Signup(ctx, &dto.SignupRequest{
		MobileNumber: "9876543210",
		Name:         strPtr("Asha"),
		Password:     strPtr("secret123"),
	})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", res.MobileNumber)
	assert.Equal(t, "BASIC", res.SubscriptionTier)

	stored := store.user(res.Id)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("secret123")))

	t.Run("duplicate mobile number", func(t *testing.T) {
		_, err := auth.Signup(ctx, &dto.SignupRequest{MobileNumber: "9876543210"})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})
}

func TestOtpLogin(t *testing.T) {
	store := newMemoryStore()
	mailer := &capturingMailer{sent: make(chan sentOtp, 1)}
	auth := newTestAuth(store, mailer)
	ctx := context.Background()

	user := seedUser(store, entity.TierBasic)
	user.Email = strPtr("asha@example.com")
	store.users[user.Id] = user

	sent, err := auth.SendOtp(ctx, &dto.SendOtpRequest{MobileNumber: user.MobileNumber})
	require.NoError(t, err)
	require.Len(t, sent.Otp, 6)
	assert.Equal(t, "5 minutes", sent.ExpiresIn)

	select {
	case mail := <-mailer.sent:
		assert.Equal(t, "asha@example.com", mail.to)
		assert.Equal(t, sent.Otp, mail.code)
	case <-time.After(time.Second):
		t.Fatal("otp mail was not sent")
	}

	t.Run("wrong code", func(t *testing.T) {
		wrong := "000000"
		if sent.Otp == wrong {
			wrong = "111111"
		}
		_, err := auth.VerifyOtp(ctx, &dto.VerifyOtpRequest{MobileNumber: user.MobileNumber, Otp: wrong})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("valid code issues a token", func(t *testing.T) {
		res, err := auth.VerifyOtp(ctx, &dto.VerifyOtpRequest{MobileNumber: user.MobileNumber, Otp: sent.Otp})
		require.NoError(t, err)
		assert.Equal(t, user.Id, res.User.Id)

		userId, err := serverutils.ParseToken(res.Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, user.Id, userId)
	})

	t.Run("code is single use", func(t *testing.T) {
		_, err := auth.VerifyOtp(ctx, &dto.VerifyOtpRequest{MobileNumber: user.MobileNumber, Otp: sent.Otp})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("expired code", func(t *testing.T) {
		again, err := auth.ForgotPassword(ctx, &dto.ForgotPasswordRequest{MobileNumber: user.MobileNumber})
		require.NoError(t, err)
		<-mailer.sent

		auth.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
		defer func() { auth.now = time.Now }()

		_, err = auth.VerifyOtp(ctx, &dto.VerifyOtpRequest{MobileNumber: user.MobileNumber, Otp: again.Otp})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("unknown number", func(t *testing.T) {
		_, err := auth.SendOtp(ctx, &dto.SendOtpRequest{MobileNumber: "0000000000"})
		assert.Equal(t, http.StatusNotFound, apperror.CodeOf(err))
	})
}

func TestVerifyOtpConcurrentUse(t *testing.T) {
	store := newMemoryStore()
	mailer := &capturingMailer{sent: make(chan sentOtp, 1)}
	auth := newTestAuth(store, mailer)
	ctx := context.Background()

	user := seedUser(store, entity.TierBasic)
	sent, err := auth.SendOtp(ctx, &dto.SendOtpRequest{MobileNumber: user.MobileNumber})
	require.NoError(t, err)

	var issued atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.VerifyOtp(ctx, &dto.VerifyOtpRequest{MobileNumber: user.MobileNumber, Otp: sent.Otp})
			if err == nil {
				issued.Add(1)
				return
			}
			assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, issued.Load())
}

func TestChangePassword(t *testing.T) {
	store := newMemoryStore()
	auth := newTestAuth(store, &capturingMailer{sent: make(chan sentOtp, 1)})
	ctx := context.Background()

	created, err := auth.Signup(ctx, &dto.SignupRequest{MobileNumber: "9123456780", Password: strPtr("first-pass")})
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := auth.ChangePassword(ctx, created.Id, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "second-pass"})
		assert.Equal(t, http.StatusBadRequest, apperror.CodeOf(err))
	})

	t.Run("correct current password", func(t *testing.T) {
		err := auth.ChangePassword(ctx, created.Id, &dto.ChangePasswordRequest{CurrentPassword: "first-pass", NewPassword: "second-pass"})
		require.NoError(t, err)

		stored := store.user(created.Id)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("second-pass")))
	})

	t.Run("passwordless account sets one directly", func(t *testing.T) {
		user := seedUser(store, entity.TierBasic)
		err := auth.ChangePassword(ctx, user.Id, &dto.ChangePasswordRequest{NewPassword: "brand-new"})
		require.NoError(t, err)
		assert.NotNil(t, store.user(user.Id).PasswordHash)
	})
}
