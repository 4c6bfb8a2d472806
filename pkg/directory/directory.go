// Package directory contains the implementation independent recipient directory logic.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inbucket/reroute/pkg/config"
)

// ErrNotFound indicates the directory holds no entry for the requested address.
var ErrNotFound = errors.New("recipient not found in directory")

// RecipientType describes what kind of directory object an address resolved to.
type RecipientType int

const (
	// Unknown is used for entries whose type was not recorded.
	Unknown RecipientType = iota
	// User is a mailbox owned by a person.
	User
	// Group is a distribution list or security group.
	Group
	// Contact is a mail-enabled contact.
	Contact
	// PublicFolder is a mail-enabled public folder.
	PublicFolder
)

var recipientTypeNames = map[RecipientType]string{
	Unknown:      "Unknown",
	User:         "User",
	Group:        "Group",
	Contact:      "Contact",
	PublicFolder: "PublicFolder",
}

func (t RecipientType) String() string {
	if s, ok := recipientTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("RecipientType(%d)", int(t))
}

// ParseRecipientType converts a type name to a RecipientType, ignoring case.
func ParseRecipientType(s string) (RecipientType, error) {
	for t, name := range recipientTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown recipient type %q", s)
}

// Entry is a directory object resolved from an address.
type Entry struct {
	Address string
	Type    RecipientType
}

// Directory resolves whether an address is known to the organization.  Find must return
// ErrNotFound when there is no match; any other error is treated as a lookup failure.
type Directory interface {
	Find(ctx context.Context, address string) (*Entry, error)
}

// Store is a Directory that can be modified.  The cmd/reroute import command and the test suite
// in pkg/test operate on Stores.
type Store interface {
	Directory
	// Put adds or replaces the entry for e.Address.
	Put(ctx context.Context, e Entry) error
	// Delete removes the entry for address; deleting a missing address is not an error.
	Delete(ctx context.Context, address string) error
}

// Constructor is a function that creates a Directory from the configuration.
type Constructor func(config.Directory) (Directory, error)

// Constructors maps directory type names to their constructors.
var Constructors = make(map[string]Constructor)

// FromConfig creates the Directory configured by c.Type.
func FromConfig(c config.Directory) (Directory, error) {
	if cf := Constructors[c.Type]; cf != nil {
		return cf(c)
	}
	return nil, fmt.Errorf("unknown directory type configured: %q", c.Type)
}

// NormalizeAddress returns the key directories use to index an address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(address), "<>"))
}
