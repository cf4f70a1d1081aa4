package services

import (
	"fmt"
	"net/smtp"
	"os"
	"time"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     os.Getenv("EMAIL_FROM"),
	}
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if s.host == "" || s.port == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("SMTP credentials not fully configured")
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	// Build the message
	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", to[0], subject, body))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, to, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendDueReminder emails a student about an upcoming installment.
func (s *EmailService) SendDueReminder(to, courseTitle string, index int, amount float64, dueDate time.Time) error {
	subject := fmt.Sprintf("Installment %d for %s is due soon", index+1, courseTitle)
	body := fmt.Sprintf(
		"Your installment %d of %.2f for %s is due on %s. Please complete the payment to keep your course access.",
		index+1, amount, courseTitle, dueDate.Format("2 January 2006"))
	return s.SendEmail([]string{to}, subject, body)
}

// SendPaidInFullReceipt emails a student once the final installment clears.
func (s *EmailService) SendPaidInFullReceipt(to, courseTitle string, total float64) error {
	subject := fmt.Sprintf("Payment complete for %s", courseTitle)
	body := fmt.Sprintf(
		"All installments for %s are settled (total %.2f). You now have full course access.",
		courseTitle, total)
	return s.SendEmail([]string{to}, subject, body)
}
