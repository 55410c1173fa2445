package sso

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"

	"csuassist/internal/failure"
)

// cipherCharset is the alphabet the login page's script draws its random
// prefix and iv from, it leaves out characters that are easy to confuse.
const cipherCharset = "ABCDEFGHJKMNPQRSTWXYZabcdefhijkmnprstwxyz2345678"

const (
	cipherPrefixLength = 64
	cipherIvLength     = 16
)

// Cipher reproduces the password encryption the CAS login page performs in
// the browser before submitting the form.
type Cipher struct {
	// Random is the entropy source for the prefix and iv, crypto/rand is used
	// when it is nil.
	Random io.Reader
}

func (c Cipher) randomChars(n int) (string, error) {
	source := c.Random
	if source == nil {
		source = rand.Reader
	}
	max := big.NewInt(int64(len(cipherCharset)))

	var sb strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(source, max)
		if err != nil {
			return "", fmt.Errorf("generate random char index: %w", err)
		}
		sb.WriteByte(cipherCharset[idx.Int64()])
	}
	return sb.String(), nil
}

// Encrypt encrypts password with a fresh random prefix and iv.
func (c Cipher) Encrypt(password, salt string) (string, error) {
	if salt == "" {
		return "", failure.ErrMissingSalt
	}
	prefix, err := c.randomChars(cipherPrefixLength)
	if err != nil {
		return "", err
	}
	iv, err := c.randomChars(cipherIvLength)
	if err != nil {
		return "", err
	}
	return EncryptWith(password, salt, prefix, iv)
}

// EncryptWith is Encrypt with a caller chosen prefix and iv.
//
// The plaintext is prefix+password padded with PKCS#7 to the block size and
// encrypted with AES-128-CBC, key = salt bytes, iv = iv bytes. The result is
// base64 encoded.
func EncryptWith(password, salt, prefix, iv string) (string, error) {
	if salt == "" {
		return "", failure.ErrMissingSalt
	}
	if len(salt) != aes.BlockSize {
		return "", fmt.Errorf("salt must be %d bytes, got %d", aes.BlockSize, len(salt))
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher([]byte(salt))
	if err != nil {
		return "", err
	}

	plain := pkcs7Pad([]byte(prefix+password), aes.BlockSize)
	encrypted := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(encrypted, plain)

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}
