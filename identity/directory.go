// Package identity holds the demo portal accounts and the tokens issued to
// them after login.
package identity

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/dharma-case-api/models"
)

var (
	// ErrInvalidCredentials is returned when the identifier or password does not match
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownRole is returned for roles without a portal account
	ErrUnknownRole = errors.New("unknown role")
)

// Account is a single portal login. Each role signs in with its own kind of
// identifier: an email for the public, a badge number for police and so on.
type Account struct {
	Role            models.Role
	IdentifierField string
	Identifier      string
	PasswordHash    []byte
	Email           string
}

// Participant returns the case participant the account acts as
func (a Account) Participant() models.CaseParticipant {
	role := string(a.Role)
	return models.CaseParticipant{
		ID:   fmt.Sprintf("%s-123", role),
		Name: fmt.Sprintf("%s User", strings.ToUpper(role[:1])+role[1:]),
		Role: a.Role,
	}
}

// Directory looks up accounts by role
type Directory struct {
	accounts map[models.Role]Account
}

// NewDirectory returns a Directory holding accounts, one per role
func NewDirectory(accounts ...Account) *Directory {
	d := &Directory{accounts: make(map[models.Role]Account, len(accounts))}
	for _, a := range accounts {
		d.accounts[a.Role] = a
	}
	return d
}

type demoLogin struct {
	role       models.Role
	field      string
	identifier string
	password   string
}

var demoLogins = []demoLogin{
	{models.RolePublic, "email", "user@dharma.com", "password123"},
	{models.RolePolice, "badgeNumber", "PL1234", "police123"},
	{models.RoleLawyer, "barNumber", "LW5678", "lawyer123"},
	{models.RoleJudge, "registrationId", "JD9012", "judge123"},
	{models.RoleAdmin, "adminId", "AD3456", "admin123"},
}

var demoAccounts = sync.OnceValues(func() ([]Account, error) {
	accounts := make([]Account, 0, len(demoLogins))
	for _, l := range demoLogins {
		hash, err := bcrypt.GenerateFromPassword([]byte(l.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash %s password: %w", l.role, err)
		}
		email := fmt.Sprintf("%s@dharma.com", l.role)
		if l.field == "email" {
			email = l.identifier
		}
		accounts = append(accounts, Account{
			Role:            l.role,
			IdentifierField: l.field,
			Identifier:      l.identifier,
			PasswordHash:    hash,
			Email:           email,
		})
	}
	return accounts, nil
})

// DemoDirectory returns the built-in demo accounts for every portal
func DemoDirectory() (*Directory, error) {
	accounts, err := demoAccounts()
	if err != nil {
		return nil, err
	}
	return NewDirectory(accounts...), nil
}

// Account returns the account for role
func (d *Directory) Account(role models.Role) (Account, error) {
	a, ok := d.accounts[role]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return a, nil
}

// Authenticate checks identifier and password against the account for role
func (d *Directory) Authenticate(role models.Role, identifier, password string) (models.CaseParticipant, error) {
	a, err := d.Account(role)
	if err != nil {
		return models.CaseParticipant{}, err
	}

	identifierHash := sha256.Sum256([]byte(identifier))
	expectedHash := sha256.Sum256([]byte(a.Identifier))
	identifierMatch := subtle.ConstantTimeCompare(identifierHash[:], expectedHash[:]) == 1

	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return models.CaseParticipant{}, ErrInvalidCredentials
	}
	if !identifierMatch {
		return models.CaseParticipant{}, ErrInvalidCredentials
	}
	return a.Participant(), nil
}
