package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// PasswordHasher produces PHC-formatted argon2id hashes:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>
type PasswordHasher struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

var DefaultHasher = PasswordHasher{Memory: 64 * 1024, Time: 3, Threads: 1, SaltLen: 16, KeyLen: 32}

var errMalformedHash = errors.New("malformed argon2id hash")

func (h PasswordHasher) Hash(raw string) (string, error) {
	salt := make([]byte, h.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password salt: %w", err)
	}
	key := argon2.IDKey([]byte(raw), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	enc := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.Memory, h.Time, h.Threads,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// Verify recomputes the key with the cost stored in encoded, so hashes made
// under older parameters keep verifying.
func (h PasswordHasher) Verify(raw, encoded string) bool {
	stored, salt, key, err := parseArgon2id(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(raw), salt, stored.Time, stored.Memory, stored.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

func parseArgon2id(encoded string) (PasswordHasher, []byte, []byte, error) {
	fields := strings.Split(strings.TrimPrefix(encoded, argon2Prefix), "$")
	if !strings.HasPrefix(encoded, argon2Prefix) || len(fields) != 4 {
		return PasswordHasher{}, nil, nil, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return PasswordHasher{}, nil, nil, errMalformedHash
	}
	var stored PasswordHasher
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &stored.Memory, &stored.Time, &stored.Threads); err != nil {
		return PasswordHasher{}, nil, nil, errMalformedHash
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(fields[2])
	if err != nil {
		return PasswordHasher{}, nil, nil, errMalformedHash
	}
	key, err := enc.DecodeString(fields[3])
	if err != nil || len(key) == 0 {
		return PasswordHasher{}, nil, nil, errMalformedHash
	}
	stored.SaltLen = len(salt)
	stored.KeyLen = uint32(len(key))
	return stored, salt, key, nil
}
