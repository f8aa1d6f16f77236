package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
	sendGridTimeout  = 15 * time.Second
)

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	client *http.Client
	logger *zap.Logger
}

// NewSendGridMailer constructs a SendGridMailer.
func NewSendGridMailer(key, fromName, fromAddress string, logger *zap.Logger) *SendGridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{
		key:    key,
		host:   sendGridHost,
		from:   sgmail.NewEmail(fromName, fromAddress),
		client: &http.Client{Timeout: sendGridTimeout},
		logger: logger,
	}
}

// Send delivers msg. Any non-2xx response is an error. The request is bound to
// ctx and to the client timeout.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := m.do(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	m.logger.Debug("mail sent", zap.Strings("to", msg.To), zap.Int("status", res.StatusCode))
	return nil
}

func (m *SendGridMailer) do(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	httpRes, err := m.client.Do(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.Subject = msg.Subject
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return mail
}
