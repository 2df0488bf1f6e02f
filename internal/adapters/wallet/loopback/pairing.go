package loopback

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
)

const pairingVersion = "1"

type Pairing struct {
	Topic string
	Key   string
}

// NewPairing draws a symmetric key; the topic is derived from it.
func NewPairing() (Pairing, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return Pairing{}, err
	}

	hash := sha256.Sum256(key)
	return Pairing{
		Topic: hex.EncodeToString(hash[:]),
		Key:   hex.EncodeToString(key),
	}, nil
}

// URI renders the wc: pairing link handed to the wallet.
func (p Pairing) URI(bridge *url.URL, projectID, callback string) (string, error) {
	if bridge == nil {
		return "", errors.New("bridge url is required")
	}
	if p.Topic == "" || p.Key == "" {
		return "", errors.New("pairing is incomplete")
	}

	relay := *bridge
	if projectID != "" {
		q := relay.Query()
		q.Set("projectId", projectID)
		relay.RawQuery = q.Encode()
	}

	params := url.Values{}
	params.Set("bridge", relay.String())
	params.Set("key", p.Key)
	if callback != "" {
		params.Set("callback", callback)
	}

	return fmt.Sprintf("wc:%s@%s?%s", p.Topic, pairingVersion, params.Encode()), nil
}
