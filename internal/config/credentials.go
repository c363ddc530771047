package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadCredentials.
const (
	EnvAPIKey   = "IFIRMA_API_KEY"
	EnvUsername = "IFIRMA_USERNAME"
	EnvKeyName  = "IFIRMA_KEY_NAME"
	EnvURL      = "IFIRMA_URL"
)

// Credentials identify the ifirma account used to sign requests.
type Credentials struct {
	// APIKey is the hexadecimal key as issued by ifirma.
	APIKey string `env:"IFIRMA_API_KEY" validate:"required,hexadecimal"`

	// Username is the ifirma login.
	Username string `env:"IFIRMA_USERNAME" validate:"required"`

	// Key holds the decoded bytes of APIKey. It is the HMAC key.
	Key []byte `env:"-" validate:"-"`
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigurationError{Field: path, Err: fmt.Errorf("failed to load env file: %w", err)}
	}
	return nil
}

// LoadCredentials reads the credentials from the environment and applies the
// optional key name and URL overrides to upload.
func LoadCredentials(upload *UploadSettings) (*Credentials, error) {
	creds := &Credentials{
		APIKey:   os.Getenv(EnvAPIKey),
		Username: os.Getenv(EnvUsername),
	}

	if err := validateStruct(creds); err != nil {
		return nil, err
	}

	key, err := hex.DecodeString(creds.APIKey)
	if err != nil {
		return nil, &ConfigurationError{Field: EnvAPIKey, Err: fmt.Errorf("key is not valid hex: %w", err)}
	}
	creds.Key = key

	if v := os.Getenv(EnvKeyName); v != "" {
		upload.KeyName = v
	}
	if v := os.Getenv(EnvURL); v != "" {
		upload.URL = v
	}

	if err := validateStruct(upload); err != nil {
		return nil, err
	}

	return creds, nil
}
