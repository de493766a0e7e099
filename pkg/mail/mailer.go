package mail

import (
	"context"
	"sync"

	"github.com/booknetwork/booknet/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// New returns an SMTP mailer when an SMTP host is configured and a LogMailer
// otherwise.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return &LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

type SMTPMailer struct {
	from     string
	host     string
	port     int
	username string
	password string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		from:     cfg.MailFrom,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	gm, err := m.build(msg)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(m.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.username),
			gomail.WithPassword(m.password),
		)
	}

	client, err := gomail.NewClient(m.host, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to create smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, gm); err != nil {
		return errors.Wrapf(err, "failed to send mail to %s", msg.To)
	}
	return nil
}

func (m *SMTPMailer) build(msg *Message) (*gomail.Msg, error) {
	gm := gomail.NewMsg()
	if err := gm.From(m.from); err != nil {
		return nil, errors.Wrapf(err, "invalid from address %q", m.from)
	}
	if err := gm.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, errors.Wrapf(err, "invalid to address %q", msg.To)
	}
	gm.Subject(msg.Subject)
	gm.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	return gm, nil
}

// LogMailer writes messages to the log instead of delivering them and keeps
// them for inspection.
type LogMailer struct {
	mu   sync.Mutex
	sent []*Message
}

func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	logger.FromContext(ctx).Info("mail not sent, no smtp host configured", logger.Data{
		"to":      msg.To,
		"subject": msg.Subject,
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Messages returns everything sent so far.
func (m *LogMailer) Messages() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.sent...)
}
