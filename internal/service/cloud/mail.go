package cloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qiniu/x/xlog"
	"github.com/wneessen/go-mail"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/protodef/errors"
)

// MailDefaultTimeout 连接、握手与读写的超时时间。
const MailDefaultTimeout = 10 * time.Second

type MailSender interface {
	SendMail(xl *xlog.Logger, to string, subject string, body string) error
}

// NewMailSender 根据配置创建邮件发送器。
func NewMailSender(conf utils.MailConfig, xl *xlog.Logger) (MailSender, error) {
	if xl == nil {
		xl = xlog.New("interview-gate-mail")
	}
	switch conf.Provider {
	// 模拟的邮件发送器，仅供测试使用。
	case "test":
		return &MockMailSender{}, nil
	case "smtp":
		if conf.SMTPHost == "" || conf.From == "" {
			return nil, fmt.Errorf("smtp host and from address are required")
		}
		timeout := MailDefaultTimeout
		if conf.TimeoutSecond > 0 {
			timeout = time.Duration(conf.TimeoutSecond) * time.Second
		}
		return &SMTPMailSender{conf: conf, timeout: timeout}, nil
	default:
		xl.Errorf("unsupported mail provider %s", conf.Provider)
		return nil, fmt.Errorf("unsupported mail provider")
	}
}

// SentMail 模拟发送器记录的一封邮件。
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// MockMailSender 只记录邮件，不真正发送。
type MockMailSender struct {
	mutex sync.Mutex
	sent  []SentMail
	// Err 不为空时 SendMail 返回该错误。
	Err error
}

func (m *MockMailSender) SendMail(xl *xlog.Logger, to string, subject string, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	if xl != nil {
		xl.Debugf("mock: send mail %q to %s", subject, to)
	}
	return nil
}

// Sent 返回已记录的邮件副本。
func (m *MockMailSender) Sent() []SentMail {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// SMTPMailSender 通过 SMTP 发送纯文本邮件。每次发送建立新连接。
type SMTPMailSender struct {
	conf    utils.MailConfig
	timeout time.Duration
}

func (s *SMTPMailSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.conf.SMTPPort > 0 {
		opts = append(opts, mail.WithPort(s.conf.SMTPPort))
	}
	if s.conf.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.conf.Username),
			mail.WithPassword(s.conf.Password),
		)
	}
	return mail.NewClient(s.conf.SMTPHost, opts...)
}

func (s *SMTPMailSender) SendMail(xl *xlog.Logger, to string, subject string, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.conf.From); err != nil {
		xl.Errorf("invalid from address %s, error %v", s.conf.From, err)
		return errors.Wrap(errors.ServerErrorMailSendFail, "failed to send email", err)
	}
	if err := msg.To(to); err != nil {
		xl.Infof("invalid recipient address %s, error %v", to, err)
		return errors.Wrap(errors.ServerErrorMailSendFail, "failed to send email", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := s.client()
	if err != nil {
		xl.Errorf("failed to create smtp client, error %v", err)
		return errors.Wrap(errors.ServerErrorMailSendFail, "failed to send email", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		xl.Errorf("failed to send mail to %s, error %v", to, err)
		return errors.Wrap(errors.ServerErrorMailSendFail, "failed to send email", err)
	}
	xl.Infof("sent mail %q to %s", subject, to)
	return nil
}
