package emailsvc

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/tests"
)

func newMessage(t *testing.T) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Ada Lovelace", Address: "ada@school.edu"}},
		Cc:      []mail.Address{{Address: "registrar@school.edu"}},
		Subject: "CS101 attendance record",
		BodyStr: "See attached.",
	}
	require.NoError(t, msg.Attach(strings.NewReader("name,present\nBob,1\n"), "CS101-current.csv", "text/csv"))
	return msg
}

func TestConsoleService_SendMessages(t *testing.T) {
	out := new(bytes.Buffer)
	svc := NewSyncConsoleService(core.NewTestConfig(), out, &testutil.Logger{})

	svc.SendMessages(newMessage(t), &core.EmailMessage{Subject: "no recipients", BodyStr: "x"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "See attached.", sent[0].TextContent)

	s := out.String()
	assert.Contains(t, s, "Subject: [Class Record] CS101 attendance record\r\n")
	assert.Contains(t, s, `To: "Ada Lovelace" <ada@school.edu>`)
	assert.Contains(t, s, "CC: <registrar@school.edu>")
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `filename="CS101-current.csv"`)
	assert.NotContains(t, s, "no recipients")
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, &testutil.Logger{})

	msg := newMessage(t)
	require.NoError(t, msg.Render())
	m := svc.prepare(*msg)

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Class Record] CS101 attendance record", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@school.edu", p.To[0].Address)
	require.Len(t, p.CC, 1)
	assert.Equal(t, conf.DefaultFromEmail.Address, m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "text/csv", m.Attachments[0].Type)
	assert.Equal(t, "attachment", m.Attachments[0].Disposition)
}

func TestSendgridService_send(t *testing.T) {
	logger := &testutil.Logger{}
	svc := NewSendgridService(core.NewTestConfig(), logger)

	var body map[string]interface{}
	svc.api = func(req rest.Request) (*rest.Response, error) {
		assert.Equal(t, rest.Post, req.Method)
		assert.Equal(t, host+endpoint, req.BaseURL)
		require.NoError(t, json.Unmarshal(req.Body, &body))
		return &rest.Response{StatusCode: 400, Body: "bad request"}, nil
	}

	msg := newMessage(t)
	require.NoError(t, msg.Render())
	svc.send(*msg)

	assert.NotEmpty(t, body["personalizations"])
	errs := logger.Entries("error")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Msg, "status: 400")
}
