package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecretKeepsPrefixAndSuffix(t *testing.T) {
	assert.Equal(t, "gl_live_abc_****wxyz", MaskSecret("gl_live_abc_0123456789wxyz"))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "", MaskSecret("  "))
}

func TestMaskSensitiveOnlyTouchesCredentialKeys(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"auth_token": "supersecretvalue",
		"endpoint":   "https://erp.example.com",
		"count":      3,
		"nested": map[string]any{
			"client_secret": "abcdefgh",
		},
	})

	assert.Equal(t, "****alue", out["auth_token"])
	assert.Equal(t, "https://erp.example.com", out["endpoint"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, "****efgh", out["nested"].(map[string]any)["client_secret"])
	assert.Nil(t, MaskSensitive(nil))
}
