package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/commands"
	client "github.com/mamadbah2/dairyfarm/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// CommandHandler runs the text of an inbound message.
type CommandHandler interface {
	Handle(ctx context.Context, text, sender string) (models.AutomationReply, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg      config.WhatsAppConfig
	client   client.Client
	commands CommandHandler
	seen     *seenMessages
	logger   *zap.Logger
}

func NewMetaWhatsAppService(cfg config.WhatsAppConfig, c client.Client, commands CommandHandler, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{
		cfg:      cfg,
		client:   c,
		commands: commands,
		seen:     newSeenMessages(24 * time.Hour),
		logger:   logger,
	}
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}
	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}
	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

// HandleWebhook runs every inbound message of the payload. Status callbacks are ignored.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}
	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := strings.TrimSpace(msg.Body())
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}
	if !s.seen.firstTime(msg.ID) {
		s.logger.Info("duplicate delivery ignored", zap.String("message_id", msg.ID))
		return nil
	}

	reply, err := s.commands.Handle(ctx, text, msg.From)
	if err != nil {
		s.logger.Info("command rejected", zap.String("from", msg.From), zap.String("text", text), zap.Error(err))
		reply = ErrorReply(err)
	} else {
		s.logger.Info("command executed", zap.String("from", msg.From), zap.String("title", reply.Title))
	}

	if err := s.send(ctx, msg.From, reply.Text(), false); err != nil {
		return err
	}

	markCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.client.MarkRead(markCtx, msg.ID); err != nil {
		s.logger.Debug("mark read failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
	return nil
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

// NotifyManager sends body to the configured manager number, if there is one.
func (s *MetaWhatsAppService) NotifyManager(ctx context.Context, body string) error {
	if s.cfg.ManagerNumber == "" {
		s.logger.Debug("no manager number configured, message dropped")
		return nil
	}
	return s.send(ctx, s.cfg.ManagerNumber, body, false)
}

// Deliver forwards an escalated notification to the manager.
func (s *MetaWhatsAppService) Deliver(ctx context.Context, n models.Notification) error {
	body := fmt.Sprintf("[%s] %s\n%s", strings.ToUpper(string(n.Priority)), n.Title, n.Message)
	return s.NotifyManager(ctx, body)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{To: to, Body: body, PreviewURL: preview})
	if err != nil {
		return err
	}
	s.logger.Debug("message sent", zap.String("to", to), zap.String("message_id", resp.MessageID()))
	return nil
}

// ErrorReply turns a command failure into the text the worker gets back.
func ErrorReply(err error) models.AutomationReply {
	var (
		argErr *commands.ArgumentError
		verr   *models.ValidationError
	)
	switch {
	case errors.As(err, &argErr):
		return models.AutomationReply{Title: "Check the format", Message: argErr.Reason + "\nUse: " + argErr.Usage}
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Fields))
		for f, m := range verr.Fields {
			fields = append(fields, f+": "+m)
		}
		sort.Strings(fields)
		return models.AutomationReply{Title: "Not saved", Message: strings.Join(fields, "\n")}
	case errors.Is(err, models.ErrNotFound):
		return models.AutomationReply{Title: "Not found", Message: err.Error()}
	case errors.Is(err, models.ErrConflict):
		return models.AutomationReply{Title: "Already recorded", Message: "This entry exists already. Correct it from the dashboard."}
	case errors.Is(err, models.ErrInsufficientCount):
		return models.AutomationReply{Title: "Not saved", Message: "The batch does not hold that many birds."}
	case errors.Is(err, commands.ErrUnsupportedCommand):
		return models.AutomationReply{Title: "Command help", Message: "Unknown command. Supported:\n" + strings.Join(models.CommandUsage, "\n")}
	default:
		return models.AutomationReply{Title: "Error", Message: "Something went wrong, the entry was not saved."}
	}
}
