package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrCodeMismatch = errors.New("incorrect code")

const (
	OTPLength  = 6
	bcryptCost = 10
)

// GenerateOTP returns a uniformly random numeric code of OTPLength digits
func GenerateOTP() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// HashCode creates a bcrypt hash of a one-time code
func HashCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyCode compares a code with its bcrypt hash
func VerifyCode(code, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return err
	}
	return nil
}

// HashToken creates a SHA-256 hash of a token (for storing refresh tokens)
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CompareTokenHash compares a token with its hash
func CompareTokenHash(token, hash string) bool {
	tokenHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(hash)) == 1
}

// OTPSender delivers a login code to a member.
type OTPSender interface {
	SendOTP(ctx context.Context, email, name, code string) error
}

// LogOTPSender writes codes to the log. Used in development where no mail relay
// is configured.
type LogOTPSender struct {
	logger *zap.Logger
}

func NewLogOTPSender(logger *zap.Logger) *LogOTPSender {
	return &LogOTPSender{logger: logger}
}

func (s *LogOTPSender) SendOTP(_ context.Context, email, name, code string) error {
	s.logger.Info("login code issued",
		zap.String("email", email),
		zap.String("name", name),
		zap.String("code", code),
	)
	return nil
}
