// Package crypto implements genozip's optional section encryption
// (spec.md §4.8): AES in a CTR-like mode keyed by password-derived
// material, with distinct key schedules for section headers and
// section bodies so identical plaintexts in different positions never
// produce identical ciphertext. No third-party crypto library appears
// anywhere in the retrieved example pack, so this package is built
// directly on the stdlib crypto primitives the way any Go program
// would be (see DESIGN.md's standard-library justification).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// KeySize is the AES key length in bytes (AES-256).
const KeySize = 32

// BlockSize is the AES block size, also the encryption padding unit
// (spec.md §4.8: "padded to the AES block size with a randomized pad").
const BlockSize = aes.BlockSize

// PasswordTestSize is the length of the password oracle block stored
// unencrypted in the genozip header (spec.md §4.8, §6.2).
const PasswordTestSize = 16

// passwordTestPlaintext is compared against after decryption to
// confirm a candidate password is correct; any fixed, file-format-
// stable plaintext works, the same role genozip's own magic-like
// constant plays.
var passwordTestPlaintext = [PasswordTestSize]byte{'g', 'e', 'n', 'o', 'z', 'i', 'p', '-', 'p', 'w', 'd', '-', 't', 'e', 's', 't'}

// Key is a derived AES-256 key for either header or body encryption.
type Key [KeySize]byte

// deriveKey folds the password with a domain-separated counter using
// SHA-256, giving §4.8's "two distinct key derivations" without
// needing a KDF library: headers and bodies never share a keystream
// because their counters are drawn from disjoint integer ranges (see
// HeaderCounter/BodyCounter below).
func deriveKey(password string, counter int64) Key {
	h := sha256.New()
	h.Write([]byte(password))
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(counter >> (8 * uint(i)))
	}
	h.Write(buf[:])
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// HeaderCounter computes k_header(vblock_i, -1-section_i): section
// headers and bodies are keyed from disjoint counter spaces by
// negating and offsetting the header counter (spec.md §4.8).
func HeaderCounter(vblockI uint32, sectionI int) int64 {
	return -1 - int64(sectionI) - int64(vblockI)<<32
}

// BodyCounter computes k_body(vblock_i, section_i).
func BodyCounter(vblockI uint32, sectionI int) int64 {
	return int64(sectionI) + int64(vblockI)<<32
}

// DeriveHeaderKey returns the key used to encrypt/decrypt one section
// header.
func DeriveHeaderKey(password string, vblockI uint32, sectionI int) Key {
	return deriveKey(password, HeaderCounter(vblockI, sectionI))
}

// DeriveBodyKey returns the key used to encrypt/decrypt one section body.
func DeriveBodyKey(password string, vblockI uint32, sectionI int) Key {
	return deriveKey(password, BodyCounter(vblockI, sectionI))
}

// Encrypt CTR-encrypts plaintext under key, returning ciphertext padded
// up to a multiple of BlockSize with random bytes (spec.md §4.8). The
// IV is the zero block: the key itself is already unique per
// (vblock_i, section_i), so reusing a fixed IV does not repeat a
// keystream across sections the way it would with a shared key.
func Encrypt(key Key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	padded := padToBlock(plaintext)
	var iv [BlockSize]byte
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(padded))
	stream.XORKeyStream(out, padded)
	return out, nil
}

// Decrypt CTR-decrypts ciphertext under key. The caller is expected to
// know the true plaintext length from the section header's
// data_compressed_len and trim the padding itself.
func Decrypt(key Key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	var iv [BlockSize]byte
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(ciphertext))
	stream.XORKeyStream(out, ciphertext)
	return out, nil
}

func padToBlock(data []byte) []byte {
	pad := (BlockSize - len(data)%BlockSize) % BlockSize
	if pad == 0 {
		return data
	}
	out := make([]byte, len(data)+pad)
	copy(out, data)
	randBuf := out[len(data):]
	_, _ = rand.Read(randBuf)
	return out
}

// MakePasswordTest encrypts the fixed oracle plaintext under the
// header key derived for (vblock_i=0, section_i=0), to be stored
// verbatim in the genozip header's password_test field.
func MakePasswordTest(password string) ([PasswordTestSize]byte, error) {
	key := DeriveHeaderKey(password, 0, 0)
	ct, err := Encrypt(key, passwordTestPlaintext[:])
	var out [PasswordTestSize]byte
	if err != nil {
		return out, err
	}
	copy(out[:], ct[:PasswordTestSize])
	return out, nil
}

// CheckPassword decrypts a stored password_test block and reports
// whether password is correct.
func CheckPassword(password string, stored [PasswordTestSize]byte) (bool, error) {
	key := DeriveHeaderKey(password, 0, 0)
	pt, err := Decrypt(key, stored[:])
	if err != nil {
		return false, err
	}
	for i := range passwordTestPlaintext {
		if pt[i] != passwordTestPlaintext[i] {
			return false, nil
		}
	}
	return true, nil
}
