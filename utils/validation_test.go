package utils

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("sarah@example.com"))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("sarah"))
	assert.False(t, ValidateEmail("Sarah <sarah@example.com>"))
	assert.False(t, ValidateEmail(" sarah@example.com"))
	assert.False(t, ValidateEmail("sarah@"))
}

func TestValidateEmail_MatchesBindingTag(t *testing.T) {
	type form struct {
		Email string `binding:"required,email"`
	}
	for _, email := range []string{"sarah@example.com", "sarah", "", "Sarah <sarah@example.com>", "a.b+c@mail.example.org"} {
		bound := binding.Validator.ValidateStruct(&form{Email: email}) == nil
		assert.Equal(t, bound, ValidateEmail(email), email)
	}
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+1 (555) 123-4567"))
	assert.True(t, ValidatePhone("447700900123"))
	assert.False(t, ValidatePhone("phone"))
	assert.False(t, ValidatePhone("+0123"))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Bella's Hair & Co": "bella-s-hair-co",
		"  Joe's Plumbing ": "joe-s-plumbing",
		"Café 9":            "caf-9",
		"!!!":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}
