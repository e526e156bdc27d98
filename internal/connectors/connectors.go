package connectors

import "procure/internal"

// MailConnector is the provider-facing side of the RFQ intake: one call
// returns the unread messages of a mailbox label, raw bytes included.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedRFQMessage, error)
}
