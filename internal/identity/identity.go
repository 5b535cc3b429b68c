package identity

import (
	"context"
	"errors"
)

// AccountStatusActive is the only status allowed to authenticate.
const AccountStatusActive = "active"

// ErrAccountNotFound is returned by lookups when no account matches the id.
var ErrAccountNotFound = errors.New("identity: account not found")

// Account is the read-only view of a platform account the realtime core needs.
type Account struct {
	ID          string
	DisplayName string
	CharType    string
	Level       int
	RankTitle   string
	AvatarURL   string
	ExpPoints   int
	Status      string
}

// Identity is the resolved identity of one connection. The zero value is the
// anonymous marker.
type Identity struct {
	UserID  string
	Account Account
}

// Authenticated reports whether the identity belongs to a verified account.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// Anonymous is the explicit unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// Lookup is the narrow read port onto the platform's account store.
type Lookup interface {
	AccountByID(ctx context.Context, id string) (Account, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, id string) (Account, error)

func (f LookupFunc) AccountByID(ctx context.Context, id string) (Account, error) {
	return f(ctx, id)
}

// StaticLookup serves accounts from a fixed map. Deployments without a
// database and most tests use it.
type StaticLookup struct {
	accounts map[string]Account
}

func NewStaticLookup(accounts ...Account) *StaticLookup {
	byID := make(map[string]Account, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}
	return &StaticLookup{accounts: byID}
}

func (l *StaticLookup) AccountByID(_ context.Context, id string) (Account, error) {
	account, ok := l.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}
