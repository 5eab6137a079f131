package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny([]string{"User", "AppAdmin"}, AdminRoles...))
	assert.False(t, HasAny([]string{"User", "UserVerified"}, AdminRoles...))
	assert.False(t, HasAny(nil, RoleUser))
}
