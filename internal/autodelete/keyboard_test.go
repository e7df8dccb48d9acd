package autodelete

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Callback
		ok   bool
	}{
		{"ad:on", Callback{Action: ActionEnable}, true},
		{"ad:off", Callback{Action: ActionDisable}, true},
		{"ad:toggle", Callback{Action: ActionToggle}, true},
		{"ad:close", Callback{Action: ActionClose}, true},
		{"ad:time:600", Callback{Action: ActionTime, Seconds: 600}, true},
		{"ad:time:abc", Callback{}, false},
		{"ad:explode", Callback{}, false},
		{"help", Callback{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok := ParseCallback(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsKeyboard(t *testing.T) {
	kb := SettingsKeyboard(Policy{Enabled: true, RetentionSeconds: 1800})
	assert.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "ad:off", kb.InlineKeyboard[0][0].CallbackData)

	times := kb.InlineKeyboard[1]
	assert.Len(t, times, len(RetentionChoices))
	assert.Equal(t, "ad:time:1800", times[2].CallbackData)
	assert.Equal(t, "• 30 min •", times[2].Text)
	assert.Equal(t, "5 min", times[0].Text)

	kb = SettingsKeyboard(Policy{RetentionSeconds: 300})
	assert.Equal(t, "ad:on", kb.InlineKeyboard[0][0].CallbackData)

	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			_, ok := ParseCallback(b.CallbackData)
			assert.True(t, ok, b.CallbackData)
		}
	}
}

func TestRetentionLabel(t *testing.T) {
	assert.Equal(t, "5 minutes", RetentionLabel(300))
	assert.Equal(t, "1 hour", RetentionLabel(3600))
	assert.Equal(t, "90 seconds", RetentionLabel(90))
	assert.Contains(t, SettingsText(Policy{Enabled: true, RetentionSeconds: 600}, 3), "10 minutes")
}
