package email

import (
	"context"
	"fmt"
	"net/smtp"

	"commerce-backend/pkg/logger"
)

type OrderConfirmationData struct {
	Email       string
	OrderNumber string
	TotalAmount string
	Currency    string
}

type EmailService interface {
	SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

func NewSMTPEmailService(smtpHost, smtpPort, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: smtpHost + ":" + smtpPort,
		smtpFrom: from,
	}
}

func (s *smtpEmailService) SendOrderConfirmation(ctx context.Context, data OrderConfirmationData) error {
	subject := fmt.Sprintf("Order confirmation %s", data.OrderNumber)
	body := fmt.Sprintf(`Hi,

Thanks for your order %s.

Total: %s %s

We have reserved your items and will start processing as soon as your
payment is confirmed.`, data.OrderNumber, data.TotalAmount, data.Currency)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.smtpFrom, data.Email, subject, body))

	if err := smtp.SendMail(s.smtpAddr, nil, s.smtpFrom, []string{data.Email}, msg); err != nil {
		logger.Warn("failed to send confirmation email", map[string]interface{}{
			"error":     err.Error(),
			"to":        data.Email,
			"smtp_addr": s.smtpAddr,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
