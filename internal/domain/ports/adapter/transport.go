package adapter

import "context"

// ConversationTransport delivers buyer messages to the seller.
// Inbound seller messages enter through the negotiation use case.
type ConversationTransport interface {
	Send(ctx context.Context, sessionID, text string) error
}
