package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"procure/internal"
	"procure/internal/config"
)

// Connector fetches unread RFQ messages over IMAP. Each FetchInbox call
// opens a fresh session; the demo traffic is too small to justify keeping a
// connection alive.
type Connector struct {
	cfg config.Config
}

func NewConnector(cfg config.Config) (*Connector, error) {
	required := map[string]string{
		"IMAP_HOST":     cfg.IMAPHost,
		"IMAP_USER":     cfg.IMAPUser,
		"IMAP_PASSWORD": cfg.IMAPPassword,
	}
	for name, value := range required {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}
	return &Connector{cfg: cfg}, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.IMAPHost, c.cfg.IMAPPort)
	if c.cfg.IMAPSecure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.cfg.IMAPHost})
	}
	return imapclient.Dial(addr)
}

// unseenIDs returns the sequence numbers of unread messages in the selected
// mailbox, keeping only the newest max.
func unseenIDs(client *imapclient.Client, max int) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) > max {
		ids = ids[len(ids)-max:]
	}
	return ids, nil
}

func (c *Connector) FetchInbox(label string, max int) ([]internal.FetchedRFQMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.cfg.IMAPUser, c.cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, err
	}

	ids, err := unseenIDs(client, max)
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedRFQMessage, 0, len(ids))
	fetched := new(imap.SeqSet)
	for msg := range messages {
		rfq, ok, err := toRFQMessage(msg, section)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, rfq)
		fetched.AddNum(msg.SeqNum)
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}

	// Flag everything we pulled in one round trip, and only after the fetch
	// finished cleanly, so a failed run leaves the messages unread.
	if c.cfg.IMAPMarkSeen && !fetched.Empty() {
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(fetched, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// toRFQMessage turns a fetched IMAP message into the provider-neutral shape.
// Messages without a retrievable body section are skipped.
func toRFQMessage(msg *imap.Message, section *imap.BodySectionName) (internal.FetchedRFQMessage, bool, error) {
	if msg == nil {
		return internal.FetchedRFQMessage{}, false, nil
	}
	body := msg.GetBody(section)
	if body == nil {
		return internal.FetchedRFQMessage{}, false, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return internal.FetchedRFQMessage{}, false, err
	}

	rfq := internal.FetchedRFQMessage{
		Provider:   "imap",
		MessageID:  fmt.Sprintf("imap-%d", msg.Uid),
		ReceivedAt: receivedAt(msg.InternalDate),
		Raw:        raw,
	}
	if env := msg.Envelope; env != nil {
		if env.MessageId != "" {
			rfq.MessageID = env.MessageId
		}
		rfq.Subject = env.Subject
		rfq.From = senderLine(env.From)
	}
	return rfq, true, nil
}

func receivedAt(internalDate time.Time) string {
	if internalDate.IsZero() {
		internalDate = time.Now()
	}
	return internalDate.UTC().Format(time.RFC3339)
}

func senderLine(addrs []*imap.Address) string {
	var b strings.Builder
	for _, a := range addrs {
		if a == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		email := a.MailboxName + "@" + a.HostName
		if a.MailboxName == "" || a.HostName == "" {
			email = strings.Trim(email, "@")
		}
		if a.PersonalName != "" {
			fmt.Fprintf(&b, "%s <%s>", a.PersonalName, email)
		} else {
			b.WriteString(email)
		}
	}
	return b.String()
}
