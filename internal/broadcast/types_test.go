package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_RoundTripAndToggle(t *testing.T) {
	opts := ParseOptions("user, pin,bogus")
	assert.True(t, opts[OptionUser])
	assert.True(t, opts[OptionPin])
	assert.False(t, opts[OptionGroup])
	assert.Equal(t, "pin,user", opts.String())

	opts.Toggle(OptionPin).Toggle(OptionGroup)
	assert.Equal(t, "group,user", opts.String())

	assert.Empty(t, ParseOptions("").String())
}

func TestDraft_HasContent(t *testing.T) {
	assert.False(t, (&Draft{}).HasContent())
	assert.True(t, (&Draft{Text: "hello"}).HasContent())
	assert.True(t, (&Draft{SourceMessageID: 3}).HasContent())
}
