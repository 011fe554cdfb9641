package crypto

import dErrors "addresshub/pkg/domain-errors"

// Policy controls how DecryptFields treats values that fail to decrypt.
//
// DecryptStrict is the default everywhere. DecryptFallbackToPlaintext exists
// for one reason only: rows written before field encryption was introduced
// still hold plaintext, and the batch sync path must be able to read them.
// It is an explicit migration affordance at the call site, never implicit
// behavior.
type Policy int

const (
	DecryptStrict Policy = iota
	DecryptFallbackToPlaintext
)

// EncryptFields encrypts the named fields in the mapping. Empty and absent
// values pass through unchanged; other fields are untouched.
func (c *FieldCipher) EncryptFields(values map[string]string, fields []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range fields {
		v, ok := values[f]
		if !ok || v == "" {
			continue
		}
		enc, err := c.Encrypt(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt field "+f)
		}
		out[f] = enc
	}
	return out, nil
}

// DecryptFields decrypts the named fields in the mapping according to the
// given policy. Under DecryptStrict the first failing field aborts with
// CodeDecryptionFailed; under DecryptFallbackToPlaintext a failing value is
// kept as-is and assumed to be legacy plaintext.
func (c *FieldCipher) DecryptFields(values map[string]string, fields []string, policy Policy) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, f := range fields {
		v, ok := values[f]
		if !ok || v == "" {
			continue
		}
		dec, err := c.Decrypt(v)
		if err != nil {
			if policy == DecryptFallbackToPlaintext && dErrors.HasCode(err, dErrors.CodeDecryptionFailed) {
				out[f] = v
				continue
			}
			return nil, err
		}
		out[f] = dec
	}
	return out, nil
}
