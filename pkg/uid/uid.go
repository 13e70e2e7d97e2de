package uid

import (
	"strings"

	"github.com/google/uuid"
)

// Prefixes distinguish identifier kinds in logs and API payloads.
const (
	ItemPrefix = "itm_"
	TxnPrefix  = "txn_"
	UserPrefix = "usr_"
)

// New generates a new unprefixed unique identifier.
func New() string {
	return uuid.New().String()
}

// NewItem generates an identifier for an inventory item.
func NewItem() string {
	return ItemPrefix + uuid.New().String()
}

// NewTransaction generates an identifier for a ledger transaction.
func NewTransaction() string {
	return TxnPrefix + uuid.New().String()
}

// NewUser generates an identifier for a user account.
func NewUser() string {
	return UserPrefix + uuid.New().String()
}

// IsValid checks if a string is a well-formed identifier, with or
// without a kind prefix.
func IsValid(id string) bool {
	for _, p := range []string{ItemPrefix, TxnPrefix, UserPrefix} {
		if strings.HasPrefix(id, p) {
			id = strings.TrimPrefix(id, p)
			break
		}
	}
	_, err := uuid.Parse(id)
	return err == nil
}
