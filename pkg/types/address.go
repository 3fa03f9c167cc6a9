package types

import "github.com/google/uuid"

// ShipAddress is one entry in a user's shipping address book.
type ShipAddress struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Address string    `json:"address"`
	Default bool      `json:"default"`
}

// ShipAddressList is stored on the user row as a JSON array.
type ShipAddressList []ShipAddress

// DefaultAddress returns the entry flagged as default, or nil.
func (l ShipAddressList) DefaultAddress() *ShipAddress {
	for i := range l {
		if l[i].Default {
			return &l[i]
		}
	}
	return nil
}

// ClearDefault unsets the default flag on every entry.
func (l ShipAddressList) ClearDefault() {
	for i := range l {
		l[i].Default = false
	}
}
