package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelcomeEmailCarriesCredentials(t *testing.T) {
	subject, body, err := WelcomeEmail("Alice", "E100", "a1b2c3d4")
	require.NoError(t, err)

	assert.Equal(t, "Your account has been created", subject)
	assert.Contains(t, body, "Hello Alice,")
	assert.Contains(t, body, "Username: E100")
	assert.Contains(t, body, "Temporary password: a1b2c3d4")
}
