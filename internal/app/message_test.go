package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMessage(t *testing.T) {
	msg := StaticMessage("good morning")
	got, err := msg.Render(testStart)
	require.NoError(t, err)
	assert.Equal(t, "good morning", got)
}

func TestTemplateMessage_RendersInLocation(t *testing.T) {
	utc8 := time.FixedZone("UTC+8", 8*60*60)
	msg, err := NewTemplateMessage(DefaultMessageTemplate, utc8)
	require.NoError(t, err)

	got, err := msg.Render(time.Date(2025, 3, 14, 1, 0, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, got, "Current time: 2025-03-14 09:00:05")
	assert.Contains(t, got, "[Friendly reminder]")
}

func TestTemplateMessage_TimeField(t *testing.T) {
	msg, err := NewTemplateMessage(`{{.Time.Format "15:04"}}`, time.UTC)
	require.NoError(t, err)
	got, err := msg.Render(testStart)
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)
}

func TestNewTemplateMessage_Invalid(t *testing.T) {
	_, err := NewTemplateMessage("", time.UTC)
	assert.Error(t, err)

	_, err = NewTemplateMessage("{{.Now", time.UTC)
	assert.Error(t, err)
}

func TestTemplateMessage_UnknownFieldFailsToRender(t *testing.T) {
	msg, err := NewTemplateMessage("{{.Missing}}", time.UTC)
	require.NoError(t, err)
	_, err = msg.Render(testStart)
	assert.Error(t, err)
}
