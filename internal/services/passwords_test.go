package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var cheapHasher = PasswordHasher{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}

func TestPasswordHasherRoundTrip(t *testing.T) {
	hash, err := cheapHasher.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, cheapHasher.Verify("hunter2", hash))
	assert.False(t, cheapHasher.Verify("hunter3", hash))
	assert.True(t, DefaultHasher.Verify("hunter2", hash), "stored cost wins over the verifier's")

	again, err := cheapHasher.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestPasswordHasherRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "$argon2id$", "$argon2id$v=19$m=1,t=1$abc$def", "$argon2id$v=18$m=1024,t=1,p=1$YWJj$ZGVm", "$argon2id$v=19$m=1024,t=1,p=1$!!$ZGVm"} {
		assert.False(t, cheapHasher.Verify("x", bad), bad)
	}
}

func TestTokenServiceAcceptsLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := TokenService{Hasher: cheapHasher}
	assert.True(t, svc.VerifyPassword("old-pass", string(legacy)))
	assert.False(t, svc.VerifyPassword("new-pass", string(legacy)))

	hash, err := svc.HashPassword("new-pass")
	require.NoError(t, err)
	assert.True(t, svc.VerifyPassword("new-pass", hash))
}
