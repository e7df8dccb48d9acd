package broadcast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Callback
		ok   bool
	}{
		{"bc:opt:abc:pin", Callback{Action: ActionOption, DraftID: "abc", Option: OptionPin}, true},
		{"bc:send:abc", Callback{Action: ActionSend, DraftID: "abc"}, true},
		{"bc:cancel:abc", Callback{Action: ActionCancel, DraftID: "abc"}, true},
		{"bc:opt:abc:everyone", Callback{}, false},
		{"bc:send", Callback{}, false},
		{"ad:on", Callback{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok := ParseCallback(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDraftKeyboard_RoundTrips(t *testing.T) {
	d := &Draft{ID: "0b5c1f7e-2f7e-4a53-9a0c-8f6f3c1d2e4b"}
	kb := DraftKeyboard(d)
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			assert.LessOrEqual(t, len(btn.CallbackData), 64)
			cb, ok := ParseCallback(btn.CallbackData)
			assert.True(t, ok, btn.CallbackData)
			assert.Equal(t, d.ID, cb.DraftID)
		}
	}
}

func TestDraftText(t *testing.T) {
	d := &Draft{Text: "<b>sale</b>", Options: Options{OptionGroup: true}}
	text := DraftText(d)
	assert.Contains(t, text, "&lt;b&gt;sale&lt;/b&gt;")
	assert.Contains(t, text, "- 👥 Group: ✅")
	assert.Contains(t, text, "- 📍 Pin: ❌")

	assert.Contains(t, DraftText(&Draft{SourceMessageID: 4}), "Replied content")
	assert.Contains(t, DraftText(&Draft{}), "No message content")
}

func TestSummary(t *testing.T) {
	r := &Report{OriginChatID: -1001234567, OriginMessageID: 42, Groups: &Tally{Total: 3, Success: 2, Failed: 1}}
	text := SummaryText(r)
	assert.Contains(t, text, "Current chat message: Sent")
	assert.Contains(t, text, "Group broadcast: Sent")
	assert.Contains(t, text, "User broadcast: Skipped")
	assert.Contains(t, text, "• Failed: 1")

	kb := SummaryKeyboard(r)
	if assert.NotNil(t, kb) {
		assert.Equal(t, "https://t.me/c/1234567/42", kb.InlineKeyboard[0][0].URL)
	}

	assert.Nil(t, SummaryKeyboard(&Report{OriginChatID: 55, OriginMessageID: 1}))
	assert.Contains(t, SummaryText(&Report{OriginErr: errors.New("x")}), "Failed")
}

func TestProgressText(t *testing.T) {
	assert.Equal(t, "👥 Group broadcast: 10/25", ProgressText(TargetGroups, 10, 25))
	assert.Equal(t, "👤 User broadcast: 100/300", ProgressText(TargetUsers, 100, 300))
}
