// Package service generates and verifies emergency access one-time codes.
package service

import (
	"crypto/rand"
	"encoding/base32"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/medledger/internal/errors"
)

// codeBytes yields a 16-character base32 code, easy to read aloud over a phone line.
const codeBytes = 10

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// CodeService issues one-time codes and stores them only as Argon2id hashes.
type CodeService interface {
	// GenerateCode returns a new random code and its hash.
	GenerateCode() (plainCode string, codeHash string, err error)

	// CompareCode reports whether plainCode matches codeHash in constant time.
	CompareCode(plainCode, codeHash string) bool
}

type codeService struct {
	hasher *pwdhash.PasswordHasher
}

func (c *codeService) GenerateCode() (string, string, error) {
	randomBytes := make([]byte, codeBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate emergency code")
	}
	plainCode := codeEncoding.EncodeToString(randomBytes)

	codeHash, err := c.hasher.Hash([]byte(plainCode))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash emergency code")
	}

	return plainCode, codeHash, nil
}

func (c *codeService) CompareCode(plainCode, codeHash string) bool {
	ok, err := c.hasher.Verify([]byte(plainCode), codeHash)
	if err != nil {
		return false
	}
	return ok
}

// NewCodeService creates a CodeService using the interactive Argon2id policy. Codes
// live for minutes, so the cheaper policy keeps the emergency path fast.
func NewCodeService() CodeService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyInteractive),
	)
	if err != nil {
		panic(err)
	}

	return &codeService{hasher: hasher}
}
