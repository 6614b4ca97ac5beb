package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 加解密往返属性：任意明文、任意密码，解密后必须与原文一致

func TestProperty_EncryptDecryptRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("decrypt(encrypt(p)) == p for any plaintext and password", prop.ForAll(
		func(plaintext, password string) bool {
			salt, err := GenerateSalt()
			if err != nil {
				return false
			}
			key := DeriveKey(password, salt)

			enc, err := Encrypt([]byte(plaintext), key)
			if err != nil {
				return false
			}
			dec, err := Decrypt(enc, key)
			if err != nil {
				return false
			}
			return bytes.Equal(dec, []byte(plaintext))
		},
		gen.AnyString(),
		gen.AnyString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.Property("ciphertext never equals plaintext for non-empty input", prop.ForAll(
		func(plaintext string) bool {
			salt, _ := GenerateSalt()
			key := DeriveKey("password", salt)
			enc, err := Encrypt([]byte(plaintext), key)
			if err != nil {
				return false
			}
			return !bytes.Equal(enc.Data, []byte(plaintext))
		},
		gen.AnyString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := DeriveKey("secret", salt)
	k2 := DeriveKey("secret", salt)
	assert.Equal(t, k1, k2, "same password and salt must derive the same key")
	assert.Len(t, k1, KeyLength)

	k3 := DeriveKey("secret", []byte("fedcba9876543210"))
	assert.NotEqual(t, k1, k3, "different salt must derive a different key")

	k4 := DeriveKey("other", salt)
	assert.NotEqual(t, k1, k4, "different password must derive a different key")
}

func TestDecryptWrongKeyFails(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	key := DeriveKey("right-password", salt)
	wrongKey := DeriveKey("wrong-password", salt)

	enc, err := Encrypt([]byte(`{"body":"secret note"}`), key)
	require.NoError(t, err)

	dec, err := Decrypt(enc, wrongKey)
	if err == nil {
		// CBC 下错误密钥偶尔会产生合法填充，但明文必须已经损坏
		assert.NotEqual(t, []byte(`{"body":"secret note"}`), dec)
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("password", salt)

	tests := []struct {
		name string
		enc  EncryptedData
	}{
		{"empty data", EncryptedData{IV: make([]byte, 16)}},
		{"short iv", EncryptedData{IV: make([]byte, 8), Data: make([]byte, 16)}},
		{"non block aligned", EncryptedData{IV: make([]byte, 16), Data: make([]byte, 17)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.enc, key)
			assert.Error(t, err)
		})
	}

	_, err := Decrypt(EncryptedData{IV: make([]byte, 16), Data: make([]byte, 32)}, []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestEncryptUsesFreshIV(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("password", salt)

	e1, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)
	e2, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)

	assert.NotEqual(t, e1.IV, e2.IV, "each encryption must use a new IV")
	assert.NotEqual(t, e1.Data, e2.Data)
}

func TestEncryptedDataEncodeDecode(t *testing.T) {
	salt, _ := GenerateSalt()
	key := DeriveKey("password", salt)

	enc, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	wire := enc.Encode()
	assert.Contains(t, wire, ":")

	back, err := DecodeEncrypted(wire)
	require.NoError(t, err)
	assert.Equal(t, enc.IV, back.IV)
	assert.Equal(t, enc.Data, back.Data)

	_, err = DecodeEncrypted("not-a-valid-envelope")
	assert.Error(t, err)
}

func TestRSAKeyWrapRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	salt, _ := GenerateSalt()
	symKey := DeriveKey("password", salt)

	wrapped, err := EncryptKeyForRecipient(symKey, &priv.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, symKey, wrapped)

	unwrapped, err := DecryptKeyFromSender(wrapped, priv)
	require.NoError(t, err)
	assert.Equal(t, symKey, unwrapped)
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	pemStr, err := MarshalPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	pub, err := ParsePublicKey(pemStr)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub))
}

func TestCreateDeviceUserID(t *testing.T) {
	id1 := CreateDeviceUserID()
	id2 := CreateDeviceUserID()

	assert.Len(t, id1, DeviceUserIDLength)
	// 随机成分保证两次生成不同
	assert.NotEqual(t, id1, id2)
	assert.NotContains(t, id1, "+")
	assert.NotContains(t, id1, "/")
}
