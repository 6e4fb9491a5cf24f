package claims

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	codeCost = bcrypt.MinCost
}

func TestNewDeliveryCode(t *testing.T) {
	code, hash, err := NewDeliveryCode()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	assert.NotEqual(t, code, hash)
	assert.True(t, CheckDeliveryCode(hash, code))
}

func TestCheckDeliveryCode(t *testing.T) {
	code, hash, err := NewDeliveryCode()
	require.NoError(t, err)

	spaced := code[:3] + " " + code[3:]
	dashed := code[:3] + "-" + code[3:]
	assert.True(t, CheckDeliveryCode(hash, spaced))
	assert.True(t, CheckDeliveryCode(hash, dashed))

	wrong := []byte(code)
	wrong[0] = '0' + (wrong[0]-'0'+1)%10
	assert.False(t, CheckDeliveryCode(hash, string(wrong)))
	assert.False(t, CheckDeliveryCode(hash, code[:5]))
	assert.False(t, CheckDeliveryCode("", code))
}
