package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// Stateless password reset tokens. A token hashes the user's id, password
// hash and last login together with a timestamp, so it self-invalidates
// once the password changes or the user logs in.

var (
	secretKey                 []byte
	passwordResetTimeoutDelta time.Duration

	// NowFunc is mocked in tests.
	NowFunc = time.Now

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("expired token")
)

func initTokenGenerator(conf *core.Config) {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.Server.PasswordResetTimeoutDelta
}

// EncodeUID encodes a user's id for use in a password reset URL.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func DecodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", errInvalidToken
	}
	return string(raw), nil
}

// MakeToken generates a password reset token for the user.
func MakeToken(usr User) string {
	return makeTokenWithTimestamp(usr, numSeconds(NowFunc()))
}

func makeTokenWithTimestamp(usr User, ts int64) string {
	tsB36 := strconv.FormatInt(ts, 36)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(hashValue(usr, ts)))
	hashStr := hex.EncodeToString(mac.Sum(nil))

	// shorten the hash by keeping every second character
	var sb strings.Builder
	for i := 0; i < len(hashStr); i += 2 {
		sb.WriteByte(hashStr[i])
	}
	return fmt.Sprintf("%s-%s", tsB36, sb.String())
}

func hashValue(usr User, ts int64) string {
	return fmt.Sprintf("%s%s%d%d", usr.ID, usr.PasswordHash, usr.LastLogin.Unix(), ts)
}

func verifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(makeTokenWithTimestamp(usr, ts)), []byte(token)) {
		return errInvalidToken
	}
	if numSeconds(NowFunc())-ts > int64(passwordResetTimeoutDelta.Seconds()) {
		return errTokenExpired
	}
	return nil
}

func numSeconds(t time.Time) int64 {
	return t.Unix()
}
