package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
)

const timeLayout = "Mon 02 Jan 2006 15:04"

// mailer delivers one plain-text message.
type mailer interface {
	send(ctx context.Context, to, subject, body string) error
}

type emailService struct {
	provider string
	m        mailer
}

func (s *emailService) deliver(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return nil
	}
	logger.ExternalServiceCall(s.provider, "SendEmail", "to", to, "subject", subject)
	err := s.m.send(ctx, to, subject, body)
	logger.ExternalServiceResult(s.provider, "SendEmail", err, "to", to)
	return err
}

func bookingSummary(lotName string, b *domain.Booking, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking #%d at %s\n", b.ID, lotName)
	fmt.Fprintf(&sb, "Check-in:  %s\n", b.StartTime.Format(timeLayout))
	fmt.Fprintf(&sb, "Check-out: %s\n", b.EndTime.Format(timeLayout))
	fmt.Fprintf(&sb, "Vehicle:   %s\n", b.VehicleInfo)
	fmt.Fprintf(&sb, "Total:     %s %.2f\n", currency, b.TotalCost)
	if b.TransactionID != "" {
		fmt.Fprintf(&sb, "Transaction: %s\n", b.TransactionID)
	}
	return sb.String()
}

func (s *emailService) SendBookingConfirmation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error {
	subject := fmt.Sprintf("Booking confirmed - %s", lotName)
	body := "Hello,\n\nYour parking space is reserved.\n\n" + bookingSummary(lotName, b, currency) +
		"\nBest regards,\nThe ParkSpace Team"
	if err := s.deliver(ctx, email, subject, body); err != nil {
		return fmt.Errorf("failed to send booking confirmation: %w", err)
	}
	return nil
}

func (s *emailService) SendBookingCancellation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error {
	subject := fmt.Sprintf("Booking cancelled - %s", lotName)
	body := "Hello,\n\nYour booking has been cancelled.\n\n" + bookingSummary(lotName, b, currency)
	if b.CancellationReason != "" {
		body += fmt.Sprintf("\nReason: %s\n", b.CancellationReason)
	}
	if b.PaymentStatus == domain.PaymentStatusRefunded {
		body += fmt.Sprintf("\nA refund of %s %.2f has been issued.\n", currency, b.TotalCost)
	}
	body += "\nBest regards,\nThe ParkSpace Team"
	if err := s.deliver(ctx, email, subject, body); err != nil {
		return fmt.Errorf("failed to send booking cancellation: %w", err)
	}
	return nil
}

type smtpMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("gomail: %w", err)
	}
	return nil
}

// NewSMTPEmailService sends through an SMTP relay with gomail.
func NewSMTPEmailService(host string, port int, username, password, from string) EmailService {
	return &emailService{
		provider: "SMTP",
		m:        &smtpMailer{host: host, port: port, username: username, password: password, from: from},
	}
}

type sendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func (m *sendGridMailer) send(ctx context.Context, to, subject, body string) error {
	message := mail.NewSingleEmail(mail.NewEmail(m.fromName, m.fromEmail), subject, mail.NewEmail("", to), body, "")
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// NewSendGridEmailService sends through the SendGrid v3 API.
func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &emailService{
		provider: "SendGrid",
		m:        &sendGridMailer{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName},
	}
}

type nopMailer struct{}

func (nopMailer) send(ctx context.Context, to, subject, body string) error {
	logger.DebugContext(ctx, "Email suppressed", "to", to, "subject", subject)
	return nil
}

// NewNopEmailService logs messages instead of sending them.
func NewNopEmailService() EmailService {
	return &emailService{provider: "Nop", m: nopMailer{}}
}
