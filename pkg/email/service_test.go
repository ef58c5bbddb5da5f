package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_ConsoleMode(t *testing.T) {
	svc := NewService("from@example.com", "ReferLink", "", nil)
	assert.False(t, svc.useSendGrid)
	assert.Equal(t, "from@example.com", svc.fromEmail)
	assert.Equal(t, "ReferLink", svc.fromName)
}

func TestNewService_SendGridMode(t *testing.T) {
	svc := NewService("from@example.com", "ReferLink", "SG.test-key", nil)
	assert.True(t, svc.useSendGrid)
	assert.Equal(t, "SG.test-key", svc.sendGridKey)
}

func TestSendEmail_ConsoleMode(t *testing.T) {
	svc := NewService("from@example.com", "ReferLink", "", nil)

	res, err := svc.SendEmail(context.Background(),
		"rep@example.com", "Dana Reyes",
		"Follow up with Jamie",
		"<html><body>Jamie was referred 3 days ago.</body></html>",
		"http://localhost:3001/referrals/abc")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "console", res.MessageID)
}

func TestSendEmail_MissingRecipient(t *testing.T) {
	svc := NewService("from@example.com", "ReferLink", "", nil)

	_, err := svc.SendEmail(context.Background(), "", "", "subject", "body", "")
	assert.Error(t, err)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Subject", plainText("Subject", ""))
	assert.Equal(t, "Subject\n\nhttps://x", plainText("Subject", "https://x"))
}
