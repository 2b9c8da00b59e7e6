package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KeyPro, NormalizeKey(" Pro "))
	assert.Equal(t, KeyFree, NormalizeKey("free"))
	assert.Equal(t, KeyFree, NormalizeKey("enterprise"))
	assert.Equal(t, KeyFree, NormalizeKey(""))
}

func TestKeyFromMetadata(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KeyPro, KeyFromMetadata(nil))
	assert.Equal(t, KeyFree, KeyFromMetadata(map[string]string{"plan": "FREE"}))
	assert.Equal(t, KeyPro, KeyFromMetadata(map[string]string{"plan": "gold", "tier": "pro"}))
	assert.Equal(t, KeyPro, KeyFromMetadata(map[string]string{"visible": "true"}))
}
