package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("http://localhost:6379")
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	// Port 1 is reserved and refuses connections on test hosts.
	_, err := NewClient("redis://127.0.0.1:1/0")
	assert.Error(t, err)
}
