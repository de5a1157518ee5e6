package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when a key matches no client.
var ErrInvalidKey = errors.New("invalid API key")

// MaxKeysPerClient bounds the keys of one client: the current key and the
// one being rotated in.
const MaxKeysPerClient = 2

// APIKeyValidator validates caller keys against a fixed set of clients.
type APIKeyValidator struct {
	clients []Client
}

// NewAPIKeyValidator creates a validator. Every client needs a name and one
// or two non-empty keys.
func NewAPIKeyValidator(clients []Client) (*APIKeyValidator, error) {
	if len(clients) == 0 {
		return nil, errors.New("at least one client is required")
	}
	cp := make([]Client, len(clients))
	for i, c := range clients {
		if c.Name == "" {
			return nil, fmt.Errorf("client %d: name is required", i)
		}
		if len(c.Keys) == 0 || len(c.Keys) > MaxKeysPerClient {
			return nil, fmt.Errorf("client %q: must have 1 or %d keys, got %d", c.Name, MaxKeysPerClient, len(c.Keys))
		}
		for j, k := range c.Keys {
			if k == "" {
				return nil, fmt.Errorf("client %q: key %d is empty", c.Name, j)
			}
		}
		cp[i] = Client{Name: c.Name, Keys: append([]string(nil), c.Keys...)}
	}
	return &APIKeyValidator{clients: cp}, nil
}

// Validate returns the client owning key. Every configured key is compared
// in constant time so the response time does not reveal which one matched.
func (v *APIKeyValidator) Validate(key string) (*Client, error) {
	var match *Client
	for i := range v.clients {
		for _, k := range v.clients[i].Keys {
			if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 && match == nil {
				match = &v.clients[i]
			}
		}
	}
	if match == nil {
		return nil, ErrInvalidKey
	}
	return match, nil
}

// Clients returns the configured client names.
func (v *APIKeyValidator) Clients() []string {
	names := make([]string, len(v.clients))
	for i, c := range v.clients {
		names[i] = c.Name
	}
	return names
}
