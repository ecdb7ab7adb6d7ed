package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata_RedactsSensitiveKeys(t *testing.T) {
	masked := MaskMetadata(map[string]any{
		"password": "hunter2",
		"userId":   "abc-123",
	})

	assert.Equal(t, "[REDACTED]", masked["password"])
	assert.Equal(t, "abc-123", masked["userId"])
}

func TestMaskMetadata_RedactsSensitiveSubstringValues(t *testing.T) {
	masked := MaskMetadata(map[string]any{
		"note": "the secret is in the vault",
	})
	assert.Equal(t, "[REDACTED]", masked["note"])
}

func TestMaskMetadata_ReplacesOversizedFields(t *testing.T) {
	masked := MaskMetadata(map[string]any{
		"payload": strings.Repeat("x", maxFieldSize+1),
	})
	assert.Equal(t, "[field too large to log]", masked["payload"])
}

func TestMaskMetadata_RecursesIntoNestedMaps(t *testing.T) {
	masked := MaskMetadata(map[string]any{
		"user": map[string]any{
			"token": "abc",
			"name":  "ada",
		},
	})

	nested, ok := masked["user"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "[REDACTED]", nested["token"])
	assert.Equal(t, "ada", nested["name"])
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("access_token"))
	assert.True(t, IsSensitiveKey("Authorization"))
	assert.False(t, IsSensitiveKey("username"))
}
