package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkhatri/portfolio/internal/config"
)

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

type contactMessage struct {
	Name    string
	Email   string
	Message string
}

func (m contactMessage) validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Message) == "" {
		return errors.New("name and message are required")
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("invalid email %q", m.Email)
	}
	return nil
}

type mailer interface {
	Send(m contactMessage) error
}

type smtpMailer struct {
	cfg    config.SMTP
	logger *zap.Logger
}

func (s *smtpMailer) Send(m contactMessage) error {
	if !s.cfg.Configured() {
		return errSMTPNotConfigured
	}

	subject := fmt.Sprintf("Portfolio Contact: %s", m.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Message)

	msg := []byte("To: " + s.cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + s.cfg.User + "\r\n" +
		"Reply-To: " + m.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	if err := smtp.SendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.User, []string{s.cfg.To}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	s.logger.Info("contact email sent", zap.String("name", m.Name))
	return nil
}

// handleContact answers the htmx form post with a success or error
// fragment.
func (s *server) handleContact(c *gin.Context) {
	msg := contactMessage{
		Name:    c.PostForm("fullName"),
		Email:   c.PostForm("email"),
		Message: c.PostForm("message"),
	}
	// header injection guard
	msg.Name = strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Name)

	if err := msg.validate(); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email and a message.",
		})
		return
	}

	if err := s.mailer.Send(msg); err != nil {
		s.logger.Error("send contact email", zap.Error(err))
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
