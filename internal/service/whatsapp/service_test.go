package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/commands"
	client "github.com/mamadbah2/dairyfarm/pkg/clients/whatsapp"
)

type fakeClient struct {
	mu      sync.Mutex
	sent    []client.SendTextMessageRequest
	read    []string
	sendErr error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

func (f *fakeClient) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, id)
	return nil
}

type fakeCommands struct {
	calls []string
	reply models.AutomationReply
	err   error
}

func (f *fakeCommands) Handle(_ context.Context, text, _ string) (models.AutomationReply, error) {
	f.calls = append(f.calls, text)
	return f.reply, f.err
}

func textMessage(id, from, body string) models.InboundMessage {
	return models.InboundMessage{ID: id, From: from, Type: "text", Text: &models.TextContent{Body: body}}
}

func payload(msgs ...models.InboundMessage) models.WebhookPayload {
	return models.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{{Field: "messages", Value: models.WebhookValue{Messages: msgs}}},
		}},
	}
}

var testCfg = config.WhatsAppConfig{VerifyToken: "let-me-in", ManagerNumber: "254711000000"}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(testCfg, &fakeClient{}, &fakeCommands{}, nil)

	got, err := svc.VerifyWebhookToken("subscribe", "let-me-in", "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", got)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "12345")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("unsubscribe", "let-me-in", "12345")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("", "", "")
	assert.Error(t, err)
}

func TestHandleWebhookRepliesOnce(t *testing.T) {
	wa := &fakeClient{}
	cmds := &fakeCommands{reply: models.AutomationReply{Title: "Milk recorded", Message: "Daisy 12 L"}}
	svc := NewMetaWhatsAppService(testCfg, wa, cmds, nil)
	ctx := context.Background()

	msg := textMessage("wamid.1", "254700000001", "milk C-001 morning 12")
	require.NoError(t, svc.HandleWebhook(ctx, payload(msg)))
	require.NoError(t, svc.HandleWebhook(ctx, payload(msg)), "redelivery")

	assert.Equal(t, []string{"milk C-001 morning 12"}, cmds.calls)
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "254700000001", wa.sent[0].To)
	assert.Equal(t, "*Milk recorded*\nDaisy 12 L", wa.sent[0].Body)
	assert.Equal(t, []string{"wamid.1"}, wa.read)
}

func TestHandleWebhookSkipsNonText(t *testing.T) {
	wa := &fakeClient{}
	cmds := &fakeCommands{}
	svc := NewMetaWhatsAppService(testCfg, wa, cmds, nil)

	image := models.InboundMessage{ID: "wamid.2", From: "1", Type: "image"}
	require.NoError(t, svc.HandleWebhook(context.Background(), payload(image)))
	assert.Empty(t, cmds.calls)
	assert.Empty(t, wa.sent)
}

func TestHandleWebhookSendsErrorReply(t *testing.T) {
	wa := &fakeClient{}
	cmds := &fakeCommands{err: &commands.ArgumentError{Command: models.CommandEggs, Usage: "eggs <batch> <collected> [broken]", Reason: "expected batch and collected eggs"}}
	svc := NewMetaWhatsAppService(testCfg, wa, cmds, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload(textMessage("wamid.3", "1", "eggs"))))
	require.Len(t, wa.sent, 1)
	assert.Contains(t, wa.sent[0].Body, "Check the format")
	assert.Contains(t, wa.sent[0].Body, "Use: eggs <batch> <collected> [broken]")
}

func TestHandleWebhookReportsSendFailure(t *testing.T) {
	wa := &fakeClient{sendErr: errors.New("meta down")}
	svc := NewMetaWhatsAppService(testCfg, wa, &fakeCommands{}, nil)

	err := svc.HandleWebhook(context.Background(), payload(textMessage("wamid.4", "1", "summary")))
	assert.Error(t, err)
}

func TestErrorReply(t *testing.T) {
	tests := []struct {
		err   error
		title string
	}{
		{models.FieldError("category", "must be one of the allowed values"), "Not saved"},
		{wrapped(models.ErrNotFound), "Not found"},
		{wrapped(models.ErrConflict), "Already recorded"},
		{wrapped(models.ErrInsufficientCount), "Not saved"},
		{commands.ErrUnsupportedCommand, "Command help"},
		{errors.New("disk full"), "Error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.title, ErrorReply(tt.err).Title, tt.err.Error())
	}
	assert.Contains(t, ErrorReply(commands.ErrUnsupportedCommand).Message, "milk <tag>")
}

func wrapped(err error) error {
	return errors.Join(errors.New("cow C-404"), err)
}

func TestDeliverGoesToManager(t *testing.T) {
	wa := &fakeClient{}
	svc := NewMetaWhatsAppService(testCfg, wa, &fakeCommands{}, nil)

	err := svc.Deliver(context.Background(), models.Notification{Title: "Calving due", Message: "Daisy in 1 day", Priority: models.PriorityUrgent})
	require.NoError(t, err)
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "254711000000", wa.sent[0].To)
	assert.Equal(t, "[URGENT] Calving due\nDaisy in 1 day", wa.sent[0].Body)

	noManager := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, &fakeCommands{}, nil)
	require.NoError(t, noManager.NotifyManager(context.Background(), "hello"))
	assert.Len(t, wa.sent, 1)
}

func TestSendOutboundValidates(t *testing.T) {
	svc := NewMetaWhatsAppService(testCfg, &fakeClient{}, &fakeCommands{}, nil)
	var verr *models.ValidationError
	assert.ErrorAs(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1"}), &verr)
}

func TestSeenMessagesExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s := newSeenMessages(time.Hour)
	s.now = func() time.Time { return now }

	assert.True(t, s.firstTime("a"))
	assert.False(t, s.firstTime("a"))
	assert.True(t, s.firstTime(""))
	assert.True(t, s.firstTime(""))

	now = now.Add(2 * time.Hour)
	assert.True(t, s.firstTime("a"))
}
