package app

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DefaultMessageTemplate is the reminder sent when no BROADCAST_MESSAGE is configured.
const DefaultMessageTemplate = "[Friendly reminder]\n" +
	"Please check today's notices, don't miss anything important!\n" +
	"Current time: {{.Now}}"

const messageTimeLayout = "2006-01-02 15:04:05"

// Message is the payload of a broadcast: either fixed text or a template that is
// rendered once at the start of every run.
type Message struct {
	static   string
	tmpl     *template.Template
	location *time.Location
}

type messageData struct {
	Now  string
	Time time.Time
}

// StaticMessage returns a Message that always renders to text.
func StaticMessage(text string) Message {
	return Message{static: text}
}

// NewTemplateMessage parses text as a text/template. {{.Now}} expands to the run start
// time formatted as "2006-01-02 15:04:05" in loc; {{.Time}} exposes the time.Time itself.
func NewTemplateMessage(text string, loc *time.Location) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("message template is empty")
	}
	tmpl, err := template.New("broadcast").Option("missingkey=error").Parse(text)
	if err != nil {
		return Message{}, fmt.Errorf("failed to parse message template: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return Message{tmpl: tmpl, location: loc}, nil
}

// Render produces the text sent to every friend of a run started at now.
func (m Message) Render(now time.Time) (string, error) {
	if m.tmpl == nil {
		return m.static, nil
	}
	local := now.In(m.location)
	var sb strings.Builder
	if err := m.tmpl.Execute(&sb, messageData{Now: local.Format(messageTimeLayout), Time: local}); err != nil {
		return "", fmt.Errorf("failed to render message template: %w", err)
	}
	return sb.String(), nil
}
