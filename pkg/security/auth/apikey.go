package auth

import (
	"crypto/subtle"
	"errors"
	"sort"
	"sync"

	"mercator-hq/riskctl/pkg/config"
)

var (
	// ErrMissingKey is returned when a request carries no API key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey is returned for a key that matches no configured client.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for a key whose client is disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// Client is a configured API consumer.
type Client struct {
	Name    string
	Enabled bool

	key []byte
}

// Validator checks API keys against the configured clients.
type Validator struct {
	mu      sync.RWMutex
	clients []*Client
}

// NewValidator creates a validator from configured keys.
func NewValidator(keys []config.APIKeyConfig) *Validator {
	v := &Validator{}
	for _, k := range keys {
		v.Add(k)
	}
	return v
}

// Validate returns the client owning key. Every configured key is compared
// in constant time, so the time taken does not depend on which key matched.
func (v *Validator) Validate(key string) (*Client, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	var match *Client
	for _, c := range v.clients {
		if subtle.ConstantTimeCompare(c.key, []byte(key)) == 1 {
			match = c
		}
	}
	if match == nil {
		return nil, ErrInvalidKey
	}
	if !match.Enabled {
		return nil, ErrKeyDisabled
	}
	return match, nil
}

// Add registers a key, replacing any client with the same name.
func (v *Validator) Add(k config.APIKeyConfig) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c := &Client{Name: k.Name, Enabled: !k.Disabled, key: []byte(k.Key)}
	for i, existing := range v.clients {
		if existing.Name == k.Name {
			v.clients[i] = c
			return
		}
	}
	v.clients = append(v.clients, c)
}

// Remove drops the client called name.
func (v *Validator) Remove(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, c := range v.clients {
		if c.Name == name {
			v.clients = append(v.clients[:i], v.clients[i+1:]...)
			return
		}
	}
}

// Names returns the sorted names of all configured clients.
func (v *Validator) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	names := make([]string, 0, len(v.clients))
	for _, c := range v.clients {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
