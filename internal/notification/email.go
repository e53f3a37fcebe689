package notification

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/jbkim/weather-batch/internal/protocol"
	"github.com/jbkim/weather-batch/pkg/config"
)

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

var levelBadges = map[string]string{
	"NOTICE":    "ℹ️",
	"ADVISORY":  "⚠️",
	"WARNING":   "🚨",
	"EMERGENCY": "🆘",
}

// SendAlertNotification sends an email for one alert notification
func (e *EmailNotifier) SendAlertNotification(n *protocol.AlertNotification) error {
	badge := levelBadges[n.AlertLevel]
	if badge == "" {
		badge = "ℹ️"
	}

	subject := fmt.Sprintf("%s [%s] %s", badge, n.AlertLevel, n.Title)
	body, err := e.renderAlertTemplate(n)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) renderAlertTemplate(n *protocol.AlertNotification) (string, error) {
	tmpl := `
기상 특보 알림
==============

지역: {{.CityName}} ({{.CityCode}})
유형: {{.AlertType}}
수준: {{.AlertLevel}}
발령 시각: {{.AlertTime}}
측정값: {{printf "%.1f" .TriggerValue}}
기준값: {{printf "%.1f" .ThresholdValue}}

{{.Message}}

Alert ID: {{.AlertID}}

---
Weather Batch Notification System
`

	t, err := template.New("alert").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, n); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	// Construct message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	// Setup authentication
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	// Send email
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
