package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "addresshub/pkg/domain-errors"
)

func testCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := New(Config{Password: "test-password", Salt: "test-salt"})
	require.NoError(t, err)
	return c
}

func TestNew_KeyMaterial(t *testing.T) {
	t.Run("accepts direct 32-byte key", func(t *testing.T) {
		key := base64.URLEncoding.EncodeToString(make([]byte, 32))
		_, err := New(Config{Key: key})
		require.NoError(t, err)
	})

	t.Run("rejects key of wrong length", func(t *testing.T) {
		key := base64.URLEncoding.EncodeToString(make([]byte, 16))
		_, err := New(Config{Key: key})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEncryptionKeyInvalid))
	})

	t.Run("rejects malformed base64", func(t *testing.T) {
		_, err := New(Config{Key: "%%not-base64%%"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEncryptionKeyInvalid))
	})

	t.Run("rejects missing key material", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEncryptionKeyInvalid))
	})

	t.Run("derives key from password and salt", func(t *testing.T) {
		_, err := New(Config{Password: "pw", Salt: "salt"})
		require.NoError(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, plaintext := range []string{
		"1 Main St",
		"Åsgata 7, Tromsø",
		"半蔵門1-2-3",
		"a",
		"with spaces and, punctuation; even \"quotes\"",
	} {
		enc, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plaintext, dec)
	}
}

func TestEncrypt_EmptyPassthrough(t *testing.T) {
	c := testCipher(t)

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c := testCipher(t)

	first, err := c.Encrypt("1 Main St")
	require.NoError(t, err)
	second, err := c.Encrypt("1 Main St")
	require.NoError(t, err)

	// Fresh nonce per call; identical plaintexts must not produce equal
	// ciphertexts.
	assert.NotEqual(t, first, second)
}

func TestDecrypt_Garbage(t *testing.T) {
	c := testCipher(t)

	_, err := c.Decrypt("definitely not ciphertext")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailed))

	// Valid base64 but not sealed by our key.
	_, err = c.Decrypt(base64.URLEncoding.EncodeToString([]byte("plain old data, long enough")))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailed))
}

func TestDecrypt_WrongKey(t *testing.T) {
	c1 := testCipher(t)
	c2, err := New(Config{Password: "other-password", Salt: "other-salt"})
	require.NoError(t, err)

	enc, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(enc)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailed))
}

func TestFieldSet(t *testing.T) {
	c := testCipher(t)
	fields := []string{"line", "street", "suburb", "region", "postal_code"}

	t.Run("round-trips named fields and passes empties through", func(t *testing.T) {
		in := map[string]string{
			"line":        "1 Main St",
			"street":      "Main St",
			"suburb":      "Springfield",
			"region":      "",
			"postal_code": "4000",
			"name":        "Home", // not in the field set
		}

		enc, err := c.EncryptFields(in, fields)
		require.NoError(t, err)
		assert.Equal(t, "Home", enc["name"])
		assert.Empty(t, enc["region"])
		assert.NotEqual(t, in["line"], enc["line"])

		dec, err := c.DecryptFields(enc, fields, DecryptStrict)
		require.NoError(t, err)
		assert.Equal(t, in, dec)
	})

	t.Run("strict policy surfaces decryption failures", func(t *testing.T) {
		_, err := c.DecryptFields(map[string]string{"line": "legacy plaintext"}, fields, DecryptStrict)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDecryptionFailed))
	})

	t.Run("fallback policy keeps legacy plaintext", func(t *testing.T) {
		out, err := c.DecryptFields(map[string]string{"line": "legacy plaintext"}, fields, DecryptFallbackToPlaintext)
		require.NoError(t, err)
		assert.Equal(t, "legacy plaintext", out["line"])
	})
}
