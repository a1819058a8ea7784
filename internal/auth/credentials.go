package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Credential is one dashboard login. PasswordHash is a bcrypt hash.
type Credential struct {
	Username     string
	Role         string
	PasswordHash string
}

// Directory holds the configured operator logins.
type Directory struct {
	byName map[string]Credential
}

func NewDirectory(creds ...Credential) (*Directory, error) {
	d := &Directory{byName: make(map[string]Credential, len(creds))}
	for _, c := range creds {
		c.Username = strings.TrimSpace(c.Username)
		if c.Username == "" {
			continue
		}
		if c.Role == "" {
			return nil, errors.New("auth: role required for " + c.Username)
		}
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return nil, errors.New("auth: password hash for " + c.Username + " is not bcrypt")
		}
		if _, dup := d.byName[c.Username]; dup {
			return nil, errors.New("auth: duplicate username " + c.Username)
		}
		d.byName[c.Username] = c
	}
	if len(d.byName) == 0 {
		return nil, errors.New("auth: no operators configured")
	}
	return d, nil
}

// Authenticate checks password against the stored hash.
func (d *Directory) Authenticate(username, password string) (Credential, error) {
	c, ok := d.byName[strings.TrimSpace(username)]
	if !ok {
		return Credential{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return Credential{}, ErrInvalidCredentials
	}
	return c, nil
}

// Lookup returns the credential for username, used to re-derive the role on refresh.
func (d *Directory) Lookup(username string) (Credential, bool) {
	c, ok := d.byName[username]
	return c, ok
}
