package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkpgroup/matdash/internal/entity"
	"go.uber.org/zap"
)

// Mailer sends procurement alerts over SMTP. Every send is fire-and-forget;
// a mail failure must never fail the operation that raised it.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	logger   *zap.Logger
}

func NewMailer(host string, port int, username, password, from string, to []string, logger *zap.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		logger:   logger,
	}
}

func (m *Mailer) enabled() bool {
	return m != nil && m.host != "" && len(m.to) > 0
}

// DelayAlert flags a delivery past its expected date.
func (m *Mailer) DelayAlert(d *entity.Delivery, poRef string) {
	if !m.enabled() {
		return
	}
	subject := fmt.Sprintf("Delivery delayed: PO %s (%d days)", poRef, d.DelayDays)
	body := fmt.Sprintf(
		"Delivery %d against PO %s is %d days past its expected date.\r\nStatus: %s\r\nReason: %s\r\n",
		d.ID, poRef, d.DelayDays, d.DeliveryStatus, orStr(d.DelayReason, "not recorded"))
	m.send(subject, body)
}

// SuggestionReview asks a reviewer to look at a pending AI suggestion.
func (m *Mailer) SuggestionReview(s *entity.AISuggestion) {
	if !m.enabled() {
		return
	}
	subject := fmt.Sprintf("AI suggestion #%d awaits review (%s)", s.ID, s.TargetTable)
	body := fmt.Sprintf(
		"A document extraction scored %.1f%% confidence and needs a human decision.\r\nTarget: %s\r\nAction: %s\r\nReasoning: %s\r\n",
		s.ConfidenceScore, s.TargetTable, s.ActionType, s.AIReasoning)
	m.send(subject, body)
}

// ApprovalReminder nudges on a submittal stuck in pending.
func (m *Mailer) ApprovalReminder(mat *entity.Material, daysPending int) {
	if !m.enabled() {
		return
	}
	subject := fmt.Sprintf("Submittal pending %d days: %s", daysPending, mat.MaterialType)
	body := fmt.Sprintf(
		"Material submittal %d (%s) has been %s for %d days.\r\n",
		mat.ID, mat.MaterialType, mat.ApprovalStatus, daysPending)
	m.send(subject, body)
}

// PaymentReminder flags an invoice coming due.
func (m *Mailer) PaymentReminder(p *entity.Payment, poRef string) {
	if !m.enabled() {
		return
	}
	subject := fmt.Sprintf("Payment due: PO %s", poRef)
	body := fmt.Sprintf(
		"Payment %d against PO %s: AED %.2f invoiced, AED %.2f settled (%.1f%%).\r\n",
		p.ID, poRef, p.TotalAmount, p.PaidAmount, p.PaymentPercentage)
	m.send(subject, body)
}

func (m *Mailer) send(subject, body string) {
	go func() {
		msg := strings.Join([]string{
			"From: " + m.from,
			"To: " + strings.Join(m.to, ", "),
			"Subject: " + subject,
			"",
			body,
		}, "\r\n")

		addr := fmt.Sprintf("%s:%d", m.host, m.port)
		var auth smtp.Auth
		if m.username != "" {
			auth = smtp.PlainAuth("", m.username, m.password, m.host)
		}
		if err := smtp.SendMail(addr, auth, m.from, m.to, []byte(msg)); err != nil {
			m.logger.Warn("mail not sent",
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}
