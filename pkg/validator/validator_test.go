package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRFC3339(t *testing.T) {
	assert.NoError(t, Validate.Var("2025-03-10T12:00:00Z", "rfc3339"))
	assert.NoError(t, Validate.Var("2025-03-10T12:00:00-03:00", "rfc3339"))
	assert.Error(t, Validate.Var("10/03/2025", "rfc3339"))
	assert.Error(t, Validate.Var("", "rfc3339"))
}

func TestRFC3339Optional(t *testing.T) {
	assert.NoError(t, Validate.Var("", "rfc3339_optional"))
	assert.NoError(t, Validate.Var("2025-03-10T12:00:00Z", "rfc3339_optional"))
	assert.Error(t, Validate.Var("tomorrow", "rfc3339_optional"))
}
