package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ustczzh/AlephNote/internal/common"
)

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveMasterKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveMasterKey(password, []byte("salt-1"))
	key2 := DeriveMasterKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	pw := []byte("app-secret")

	env, err := EncryptWithPassword([]byte("hunter2"), pw)
	require.NoError(t, err)
	require.NotContains(t, string(env), "hunter2")

	got, err := DecryptWithPassword(env, pw)
	require.NoError(t, err)
	require.Equal(t, "hunter2", string(got))
}

func TestEncrypt_FreshSaltEachTime(t *testing.T) {
	pw := []byte("app-secret")

	a, err := EncryptWithPassword([]byte("same"), pw)
	require.NoError(t, err)
	b, err := EncryptWithPassword([]byte("same"), pw)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestDecrypt_WrongPassword(t *testing.T) {
	env, err := EncryptWithPassword([]byte("data"), []byte("right"))
	require.NoError(t, err)

	_, err = DecryptWithPassword(env, []byte("wrong"))
	require.ErrorIs(t, err, common.ErrEncryption)
}

func TestDecrypt_MalformedEnvelopes(t *testing.T) {
	pw := []byte("pw")
	env, err := EncryptWithPassword([]byte("data"), pw)
	require.NoError(t, err)

	tampered := append([]byte(nil), env...)
	tampered[len(tampered)-1] ^= 0xFF

	badVersion := append([]byte(nil), env...)
	badVersion[0] = 9

	cases := map[string][]byte{
		"empty":       nil,
		"too short":   []byte{1, 2, 3},
		"tampered":    tampered,
		"bad version": badVersion,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecryptWithPassword(in, pw)
			require.ErrorIs(t, err, common.ErrEncryption)
		})
	}
}
