package domain

import "time"

type Peer struct {
	Name string
	URL  string
}

// Session is a wallet pairing as reported by the wallet capability. A session
// returned from Connect is pending until a connected event approves it.
type Session struct {
	Topic      string
	PairingURI string
	Peer       Peer
	Accounts   []string
	ChainID    string
	ApprovedAt time.Time
}

func (s Session) Approved() bool {
	return !s.ApprovedAt.IsZero()
}

func (s Session) String() string {
	if s.Peer.Name != "" {
		return s.Peer.Name + " (" + shortTopic(s.Topic) + ")"
	}
	return shortTopic(s.Topic)
}

func shortTopic(topic string) string {
	if len(topic) <= 8 {
		return topic
	}
	return topic[:8]
}
