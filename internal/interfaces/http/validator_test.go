package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("maria_salao"))
	assert.True(t, ValidSlug("loja-2"))

	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("has space"))
	assert.False(t, ValidSlug("semi;colon"))
	assert.False(t, ValidSlug(strings.Repeat("a", MaxSlugLength+1)))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("5511999998888"))
	assert.True(t, ValidPhone("+5511999998888"))
	assert.True(t, ValidPhone(" 5511999998888 "))

	assert.False(t, ValidPhone(""))
	assert.False(t, ValidPhone("abc"))
	assert.False(t, ValidPhone("123"))
	assert.False(t, ValidPhone("+55 11 99999-8888"))
}

func TestValidSettingKey(t *testing.T) {
	assert.True(t, ValidSettingKey("welcome_message"))
	assert.False(t, ValidSettingKey("bad-key!"))
	assert.False(t, ValidSettingKey(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("a\x00bc"))
	assert.Equal(t, "olá", SanitizeString("olá"))
}

func TestValidateLength(t *testing.T) {
	assert.True(t, ValidateLength("abc", 1, 5))
	assert.False(t, ValidateLength("", 1, 5))
	assert.False(t, ValidateLength("abcdef", 1, 5))
}
