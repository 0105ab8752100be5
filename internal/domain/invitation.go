package domain

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// InvitationKeyLength is the length of generated invitation keys.
const InvitationKeyLength = 64

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Invitation invites a user into an organization with a given role. The key
// is the invitation's identity and is handed to the invited user.
type Invitation struct {
	Key          string      `json:"key"`
	CreatedAt    time.Time   `json:"created_date"`
	OwnerID      uuid.UUID   `json:"owner_id"`
	MembershipID uuid.UUID   `json:"membership_id"`
	Membership   *Membership `json:"-"`
}

// NewInvitation creates an invitation with a random key for the pending membership.
func NewInvitation(ownerID uuid.UUID, membership *Membership) (*Invitation, error) {
	key, err := RandomString(InvitationKeyLength)
	if err != nil {
		return nil, err
	}

	inv := &Invitation{
		Key:          key,
		CreatedAt:    time.Now().UTC(),
		OwnerID:      ownerID,
		MembershipID: membership.ID,
		Membership:   membership,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks if the Invitation has valid data.
func (i *Invitation) Validate() error {
	if len(i.Key) != InvitationKeyLength {
		return NewValidationError("key", "must be 64 characters long", nil)
	}
	if i.OwnerID == uuid.Nil {
		return NewValidationError("owner", "cannot be empty", ErrInvalidID)
	}
	if i.MembershipID == uuid.Nil {
		return NewValidationError("membership", "cannot be empty", ErrInvalidID)
	}
	return nil
}

// Accepted reports whether the invited membership has been activated.
func (i *Invitation) Accepted() bool {
	return i.Membership != nil && i.Membership.IsActive
}

// RandomString returns a cryptographically random alphanumeric string of length n.
func RandomString(n int) (string, error) {
	limit := big.NewInt(int64(len(keyAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[idx.Int64()]
	}
	return string(b), nil
}
