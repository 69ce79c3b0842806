package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "jungle:price:ethereum", Key("price", "ethereum"))
	assert.Equal(t, "jungle:lock:0xowner:0xvault", Key("lock", "0xowner:0xvault"))
	assert.Equal(t, "jungle:price:ethereum", priceKey("ethereum"))
	assert.Equal(t, "jungle:lock:w", lockKey("w"))
}
