package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"law_consult_app/models"
	"law_consult_app/services/i18n"
	"law_consult_app/templates"
	"path"
	texttemplate "text/template"

	"go.uber.org/zap"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// ConsultationEmailData is the data every consultation template receives
type ConsultationEmailData struct {
	RecipientName   string
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	LawyerName      string
	PracticeArea    string
	Date            string
	Time            string
	CaseDescription string
	Reason          string
	AppURL          string
}

// templateNames maps notification types to templates under templates/emails
var templateNames = map[string]string{
	models.NotificationTypeNewConsultation:      "new_consultation",
	models.NotificationTypeConsultationReceived: "consultation_received",
	models.NotificationTypeConfirmation:         "confirmation",
	models.NotificationTypeCompletion:           "completion",
	models.NotificationTypeCancellation:         "cancellation",
	models.NotificationTypeReminder:             "reminder",
}

// NewConsultationEmailData builds template data from a consultation and its lawyer
func NewConsultationEmailData(c *models.Consultation, lawyer *models.User, reason, appURL string) ConsultationEmailData {
	data := ConsultationEmailData{
		RecipientName:   c.FullName,
		ClientName:      c.FullName,
		ClientEmail:     c.Email,
		ClientPhone:     c.Phone,
		PracticeArea:    c.PracticeArea,
		Date:            c.ConsultationDate,
		Time:            displayTime(c.ConsultationTime),
		CaseDescription: c.CaseDescription,
		Reason:          reason,
		AppURL:          appURL,
	}
	if lawyer != nil {
		data.LawyerName = lawyer.Name
	}
	return data
}

func displayTime(value string) string {
	if clock, err := NormalizeClock(value); err == nil {
		return clock
	}
	return value
}

// BuildConsultationEmail renders the email for a consultation notification type
func BuildConsultationEmail(notificationType, toEmail string, data ConsultationEmailData, lang string) (*Email, error) {
	name, ok := templateNames[notificationType]
	if !ok {
		return nil, fmt.Errorf("unknown notification type %q", notificationType)
	}
	lang = i18n.Normalize(lang)

	email := buildEmailWithFallback(name, lang, data, toEmail)
	args := map[string]interface{}{
		"clientName":   data.ClientName,
		"lawyerName":   data.LawyerName,
		"practiceArea": data.PracticeArea,
		"date":         data.Date,
		"time":         data.Time,
		"reason":       data.Reason,
	}
	email.Subject = i18n.Translate(lang, "email.subject."+notificationType, args)
	if email.TextBody == "" && email.HTMLBody == "" {
		email.TextBody = i18n.Translate(lang, "email.fallback."+notificationType, args)
	}
	return email, nil
}

// buildEmailWithFallback loads the localized template, then the base one
func buildEmailWithFallback(templateName string, lang string, tmplData interface{}, toEmail string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, lang, tmplData)
	if err != nil {
		zap.L().Warn("email template unavailable",
			zap.String("template", templateName),
			zap.String("lang", lang),
			zap.Error(err))
	}

	return &Email{
		To:       []string{toEmail},
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// loadTemplate renders templateName + "_" + lang + ".html/.txt", falling back to
// templateName + ".html/.txt" (English)
func loadTemplate(templateName string, lang string, data interface{}) (html string, text string, err error) {
	read := func(ext string) (string, []byte, error) {
		p := path.Join("emails", fmt.Sprintf("%s_%s%s", templateName, lang, ext))
		content, err := fs.ReadFile(templates.Emails, p)
		if err != nil {
			p = path.Join("emails", templateName+ext)
			content, err = fs.ReadFile(templates.Emails, p)
			if err != nil {
				return p, nil, fmt.Errorf("failed to read template %s: %w", p, err)
			}
		}
		return p, content, nil
	}

	p, content, err := read(".html")
	if err != nil {
		return "", "", err
	}
	htmlTmpl, err := htmltemplate.New(path.Base(p)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", p, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", p, err)
	}

	p, content, err = read(".txt")
	if err != nil {
		return "", "", err
	}
	textTmpl, err := texttemplate.New(path.Base(p)).Parse(string(content))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s: %w", p, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", p, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}
