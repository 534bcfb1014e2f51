package handlers

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidatorsInstallsRules(t *testing.T) {
	registerValidators()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	assert.NoError(t, v.Var("GOLD", "tier"))
	assert.Error(t, v.Var("PLATINUM", "tier"))
	assert.NoError(t, v.Var("minimal", "layout"))
	assert.Error(t, v.Var("retro", "layout"))
}

func TestAddRulesReportsFailure(t *testing.T) {
	always := func(validator.FieldLevel) bool { return true }

	assert.NoError(t, addRules(validator.New(), bindingRules))

	err := addRules(validator.New(), map[string]validator.Func{"": always})
	assert.ErrorContains(t, err, `register "" validation`)
}

func TestNormalizeEmail(t *testing.T) {
	got, ok := normalizeEmail("  Ada@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", got)

	_, ok = normalizeEmail("not-an-address")
	assert.False(t, ok)
}
