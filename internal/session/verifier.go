package session

import (
	"crypto/subtle"

	"github.com/prudhvinik1/equiptrack/internal/utils"
)

// Built-in credential pair accepted when nothing else is configured.
const (
	DefaultUsername = "if"
	DefaultPassword = "parola"
)

// Verifier decides whether a username/password pair may open a session.
type Verifier interface {
	Verify(username, password string) bool
}

// VerifierFunc adapts a plain function to Verifier.
type VerifierFunc func(username, password string) bool

func (f VerifierFunc) Verify(username, password string) bool {
	return f(username, password)
}

// StaticVerifier accepts exactly one plaintext credential pair.
type StaticVerifier struct {
	username string
	password string
}

func NewStaticVerifier(username, password string) *StaticVerifier {
	return &StaticVerifier{username: username, password: password}
}

func (v *StaticVerifier) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(v.password)) == 1
	return userOK && passOK
}

// BcryptVerifier accepts one username whose password is stored as a bcrypt hash.
type BcryptVerifier struct {
	username     string
	passwordHash string
}

func NewBcryptVerifier(username, passwordHash string) *BcryptVerifier {
	return &BcryptVerifier{username: username, passwordHash: passwordHash}
}

func (v *BcryptVerifier) Verify(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(v.username)) != 1 {
		return false
	}
	return utils.CheckPassword(v.passwordHash, password)
}
