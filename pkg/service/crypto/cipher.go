package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/hkdf"

	"github.com/clinsec-lab/asklepios/pkg/domain/types"
)

// KeySize is the master key and derived key size in bytes (AES-256)
const KeySize = 32

var (
	ErrInvalidKey         = goerr.New("invalid encryption key")
	ErrCiphertextTooShort = goerr.New("ciphertext too short")
)

// Cipher seals and opens clinical snippets with AES-256-GCM. Each patient
// namespace uses its own data key derived from the master key via
// HKDF-SHA256 with the patient ID as info, so a leaked per-patient key never
// exposes another patient's records.
type Cipher struct {
	masterKey []byte
}

// New creates a Cipher from a 32-byte master key.
func New(masterKey []byte) (*Cipher, error) {
	if len(masterKey) != KeySize {
		return nil, goerr.Wrap(ErrInvalidKey, "master key must be 32 bytes", goerr.V("size", len(masterKey)))
	}
	key := make([]byte, KeySize)
	copy(key, masterKey)
	return &Cipher{masterKey: key}, nil
}

// NewFromHex creates a Cipher from a hex-encoded master key, the format
// produced by `openssl rand -hex 32`.
func NewFromHex(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidKey, "master key must be hex encoded")
	}
	return New(key)
}

// GenerateKey returns a new random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, goerr.Wrap(err, "failed to generate key")
	}
	return key, nil
}

// patientKey derives the per-patient data key.
func (c *Cipher) patientKey(patientID types.PatientID) ([]byte, error) {
	r := hkdf.New(sha256.New, c.masterKey, nil, []byte("asklepios/record/"+patientID.String()))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, goerr.Wrap(err, "failed to derive patient key")
	}
	return key, nil
}

func (c *Cipher) gcm(patientID types.PatientID) (cipher.AEAD, error) {
	key, err := c.patientKey(patientID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCM")
	}
	return gcm, nil
}

// Seal encrypts a snippet for the patient's namespace. The nonce is prepended
// to the returned ciphertext.
func (c *Cipher) Seal(patientID types.PatientID, plaintext string) ([]byte, error) {
	gcm, err := c.gcm(patientID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, goerr.Wrap(err, "nonce generation failed")
	}

	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a snippet from the patient's namespace. It fails on
// truncated or tampered ciphertext, and on ciphertext sealed for a
// different patient.
func (c *Cipher) Open(patientID types.PatientID, ciphertext []byte) (string, error) {
	gcm, err := c.gcm(patientID)
	if err != nil {
		return "", err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return "", goerr.Wrap(ErrCiphertextTooShort, "cannot split nonce", goerr.V("size", len(ciphertext)))
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to decrypt snippet")
	}

	return string(plaintext), nil
}
