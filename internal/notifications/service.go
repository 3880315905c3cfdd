package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/models"
)

// Service sends coin activity reports to operators
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a report via every configured channel. With nothing
// configured the report is only logged.
func (s *Service) SendReport(report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL == "" && s.config.NotificationEmail == "" {
		logrus.Infof("No notification channel configured, report: %d coins, %d failures",
			report.CoinsGiven, report.Failures)
		return nil
	}

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.Report) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Penny Coin Report - %s", periodTitle(report.Period)),
		Text:    fmt.Sprintf("%d coins given in the last %s period", report.CoinsGiven, report.Period),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts: []TeamsFact{
			{Name: "Coins Given", Value: fmt.Sprintf("%d", report.CoinsGiven)},
			{Name: "Award Failures", Value: fmt.Sprintf("%d", report.Failures)},
			{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	if top := topReceivers(report); len(top) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Receivers",
			ActivityText:  strings.Join(top, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("Penny Coin Report - %s (%d coins)", periodTitle(report.Period), report.CoinsGiven)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Penny Coin Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #5865f2; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Penny Coin Report</h1>
        <p>{{.Report.Period | title}} report generated on {{.Report.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Coins Given:</strong> {{.Report.CoinsGiven}}</p>
        <p><strong>Award Failures:</strong> {{.Report.Failures}}</p>
    </div>

    {{if .TopReceivers}}
    <h2>Top Receivers</h2>
    <ol>
    {{range .TopReceivers}}<li>{{.}}</li>{{end}}
    </ol>
    {{end}}

    <hr>
    <p><small>This report was generated automatically by Penny.</small></p>
</body>
</html>
`

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"title": periodTitle,
	}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := struct {
		Report       *models.Report
		TopReceivers []string
	}{report, topReceivers(report)}
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Penny Coin Report - %s\n", periodTitle(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Coins Given: %d\n", report.CoinsGiven))
	text.WriteString(fmt.Sprintf("Award Failures: %d\n", report.Failures))

	if top := topReceivers(report); len(top) > 0 {
		text.WriteString("\nTOP RECEIVERS\n")
		text.WriteString("=============\n")
		for i, receiver := range top {
			text.WriteString(fmt.Sprintf("%d. %s\n", i+1, receiver))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by Penny.\n")

	return text.String()
}

func topReceivers(report *models.Report) []string {
	top, _ := report.Summary["top_receivers"].([]string)
	return top
}

func periodTitle(period string) string {
	if period == "" {
		return ""
	}
	return strings.ToUpper(period[:1]) + period[1:]
}
