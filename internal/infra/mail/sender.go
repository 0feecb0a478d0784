package mail

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("destinatário vazio")

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	// send é trocado nos testes; em produção faz DialAndSend.
	send func(m *gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	s := &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
		return d.DialAndSend(m)
	}
	return s
}

// SendTemplate envia o template já renderizado como texto simples.
func (s *EmailSender) SendTemplate(to, subject, body string) error {
	m, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}
	if err := s.send(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func (s *EmailSender) buildMessage(to, subject, body string) (*gomail.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipient
	}

	from := s.From
	if from == "" {
		from = s.User
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m, nil
}
