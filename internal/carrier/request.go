package carrier

import (
	"encoding/json"
	"fmt"

	"telecom-relay/internal/encryption"
)

// envelope is the request body every carrier endpoint accepts. The
// phonenum and password fields carry ciphertext; timestamps are
// computed at build time, never reused between requests.
type envelope struct {
	Phonenum    string `json:"phonenum"`
	Password    string `json:"password,omitempty"`
	Timestamp   string `json:"timestamp"`
	Timestamp13 string `json:"timestamp13"`
	Token       string `json:"token,omitempty"`
}

type requestBuilder struct {
	encryptor *encryption.CredentialEncryptor
}

// loginBody encrypts both credentials for the login endpoint.
func (b *requestBuilder) loginBody(phone, password string) ([]byte, error) {
	encPhone, err := b.encryptor.Encrypt(phone)
	if err != nil {
		return nil, fmt.Errorf("encrypt phone: %w", err)
	}
	encPassword, err := b.encryptor.Encrypt(password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password: %w", err)
	}

	return json.Marshal(envelope{
		Phonenum:    encPhone,
		Password:    encPassword,
		Timestamp:   encryption.Timestamp(),
		Timestamp13: encryption.Timestamp13(),
	})
}

// queryBody encrypts the phone number and attaches the session token
// for the data endpoints.
func (b *requestBuilder) queryBody(phone, token string) ([]byte, error) {
	encPhone, err := b.encryptor.Encrypt(phone)
	if err != nil {
		return nil, fmt.Errorf("encrypt phone: %w", err)
	}

	return json.Marshal(envelope{
		Phonenum:    encPhone,
		Timestamp:   encryption.Timestamp(),
		Timestamp13: encryption.Timestamp13(),
		Token:       token,
	})
}
