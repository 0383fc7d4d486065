package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (OWASP recommendation).
const (
	argon2Time        = 3
	argon2Memory      = 64 * 1024
	argon2Parallelism = 4
	argon2KeyLen      = 32
	argon2SaltLen     = 32
)

// MinPasswordLength is the shortest accepted seed file password.
const MinPasswordLength = 8

var (
	// ErrNoSeedFile is returned when the seed file does not exist.
	ErrNoSeedFile = errors.New("seed file not found")
	// ErrWrongPassword is returned when a seed file cannot be opened.
	ErrWrongPassword = errors.New("wrong password or corrupted seed file")
)

// SealedSeed is a mnemonic encrypted with Argon2id + AES-256-GCM.
type SealedSeed struct {
	Version     int    `json:"version"`
	Ciphertext  []byte `json:"ciphertext"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Time        uint32 `json:"time"`
	Memory      uint32 `json:"memory"`
	Parallelism uint8  `json:"parallelism"`
}

// SealMnemonic encrypts mnemonic under password.
func SealMnemonic(mnemonic, password string) (*SealedSeed, error) {
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	sealed := &SealedSeed{
		Version:     1,
		Salt:        make([]byte, argon2SaltLen),
		Time:        argon2Time,
		Memory:      argon2Memory,
		Parallelism: argon2Parallelism,
	}
	if _, err := rand.Read(sealed.Salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := sealed.cipher(password)
	if err != nil {
		return nil, err
	}

	sealed.Nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(sealed.Nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed.Ciphertext = gcm.Seal(nil, sealed.Nonce, []byte(mnemonic), nil)

	return sealed, nil
}

// Open decrypts the mnemonic.
func (s *SealedSeed) Open(password string) (string, error) {
	gcm, err := s.cipher(password)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return "", ErrWrongPassword
	}
	defer clear(plaintext)

	return string(plaintext), nil
}

func (s *SealedSeed) cipher(password string) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), s.Salt, s.Time, s.Memory, s.Parallelism, argon2KeyLen)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SaveSealedSeed writes a sealed seed to path, readable by the owner only.
func SaveSealedSeed(sealed *SealedSeed, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write seed file: %w", err)
	}
	return nil
}

// LoadSealedSeed reads a sealed seed from path.
func LoadSealedSeed(path string) (*SealedSeed, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSeedFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var sealed SealedSeed
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &sealed, nil
}

// OpenOrCreateKeyring opens the keyring sealed at path. When the file does
// not exist a fresh mnemonic is generated and sealed there first.
func OpenOrCreateKeyring(path, password string) (*Keyring, bool, error) {
	sealed, err := LoadSealedSeed(path)
	created := false

	switch {
	case errors.Is(err, ErrNoSeedFile):
		mnemonic, err := GenerateMnemonic()
		if err != nil {
			return nil, false, err
		}
		if sealed, err = SealMnemonic(mnemonic, password); err != nil {
			return nil, false, err
		}
		if err := SaveSealedSeed(sealed, path); err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, err
	}

	mnemonic, err := sealed.Open(password)
	if err != nil {
		return nil, false, err
	}

	keyring, err := NewKeyring(mnemonic, "")
	if err != nil {
		return nil, false, err
	}
	return keyring, created, nil
}
