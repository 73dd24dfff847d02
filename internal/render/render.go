// Package render turns messages and counts into the HTML fragments carried
// by the outbound frames. The realtime core treats the output as opaque.
package render

import (
	"bytes"
	"html/template"

	"chat-status/internal/models"
)

// Renderer produces the wire-ready representation of a message as seen by a
// specific viewer, and of a room's online count.
type Renderer interface {
	Message(msg *models.Message, viewer models.UserID, status models.Status) (string, error)
	OnlineCount(count int) (string, error)
}

const messageTmpl = `<div class="message{{if .Mine}} message-mine{{end}}" id="message-{{.Message.ID}}">
<span class="message-author">{{.Message.Author}}</span>
<p class="message-body">{{.Message.Body}}</p>
<span class="message-status" data-status="{{.Status}}">{{.Marker}}</span>
</div>`

const onlineCountTmpl = `<span id="online-count" data-count="{{.}}">{{.}} online</span>`

var statusMarkers = map[models.Status]string{
	models.StatusSent:      "✓",
	models.StatusDelivered: "✓✓",
	models.StatusRead:      "✓✓",
}

// HTML is the default Renderer.
type HTML struct {
	message     *template.Template
	onlineCount *template.Template
}

var _ Renderer = (*HTML)(nil)

func NewHTML() *HTML {
	return &HTML{
		message:     template.Must(template.New("message").Parse(messageTmpl)),
		onlineCount: template.Must(template.New("online_count").Parse(onlineCountTmpl)),
	}
}

func (h *HTML) Message(msg *models.Message, viewer models.UserID, status models.Status) (string, error) {
	var buf bytes.Buffer
	err := h.message.Execute(&buf, struct {
		Message *models.Message
		Mine    bool
		Status  models.Status
		Marker  string
	}{
		Message: msg,
		Mine:    msg.Author == viewer,
		Status:  status,
		Marker:  statusMarkers[status],
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *HTML) OnlineCount(count int) (string, error) {
	var buf bytes.Buffer
	if err := h.onlineCount.Execute(&buf, count); err != nil {
		return "", err
	}
	return buf.String(), nil
}
