// Package thread implements live conversation state between two marketplace
// users: a deterministic thread identity, a membership filter over the
// table-wide message feed, and a Session that keeps an in-memory message list
// synchronized with the store.
package thread

import (
	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
)

// GeneralThread is the subject placeholder for conversations not scoped to a
// product.
const GeneralThread = "general"

const keySeparator = "|"

// Key derives the stable thread identifier for a participant pair and an
// optional product. Both participants compute the same key regardless of
// argument order: the lexicographically smaller id goes first.
//
// Equal participant ids produce a degenerate key; callers must guard against
// self-conversations before deriving a key (Session.Open does).
func Key(a, b uuid.UUID, productID *uuid.UUID) string {
	u1, u2 := a.String(), b.String()
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	subject := GeneralThread
	if productID != nil {
		subject = productID.String()
	}
	return u1 + keySeparator + u2 + keySeparator + subject
}

// Matches reports whether a message belongs to the conversation identified by
// (viewer, counterpart, productID). The participant pair must match in either
// direction and the product must match exactly; a message with no product only
// matches the general conversation.
func Matches(msg *domain.Message, viewer, counterpart uuid.UUID, productID *uuid.UUID) bool {
	direct := msg.SenderID == viewer && msg.RecipientID == counterpart
	reverse := msg.SenderID == counterpart && msg.RecipientID == viewer
	if !direct && !reverse {
		return false
	}
	return sameProduct(msg.ProductID, productID)
}

func sameProduct(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
