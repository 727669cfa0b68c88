package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"BesCrmSaas/internal/config"
	"BesCrmSaas/internal/emailtpl"
	"BesCrmSaas/internal/logger"
	"BesCrmSaas/internal/mailer"
	"BesCrmSaas/internal/notification"
	"BesCrmSaas/internal/sanitize"
)

type DispatchConfig struct {
	Schedule  string
	TimeZone  string
	BatchSize int
}

func NewDefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		Schedule:  config.DefaultDispatchSchedule,
		TimeZone:  config.DefaultTimeZone,
		BatchSize: config.DispatchBatchSize,
	}
}

type dueCampaign struct {
	ID       string
	OwnerID  string
	Subject  string
	BodyHTML string
}

type dispatchRecipient struct {
	ClientID       *string
	ClientName     string
	ClientEmail    string
	FirstSavings   decimal.Decimal
	CurrentSavings decimal.Decimal
	CreatedAt      *time.Time
}

func logAudit(msg string) {
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(msg)
	}
}

// RunCampaignDispatcher schedules the periodic scan for SCHEDULED campaigns
// whose time has come and delivers them.
func RunCampaignDispatcher(cfg DispatchConfig, db *pgxpool.Pool) error {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %v", cfg.TimeZone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		dispatchDueCampaigns(context.Background(), cfg, db)
	})
	if err != nil {
		return fmt.Errorf("invalid dispatch schedule %q: %v", cfg.Schedule, err)
	}
	c.Start()
	return nil
}

func dispatchDueCampaigns(ctx context.Context, cfg DispatchConfig, db *pgxpool.Pool) {
	rows, err := db.Query(ctx, `
		SELECT id, owner_id, subject, body_html
		FROM communication_campaigns
		WHERE status = 'SCHEDULED' AND scheduled_at <= now()
		ORDER BY scheduled_at ASC
		LIMIT $1
	`, cfg.BatchSize)
	if err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] due campaign scan failed: %v", err))
		return
	}

	var due []dueCampaign
	for rows.Next() {
		var campaign dueCampaign
		if err := rows.Scan(&campaign.ID, &campaign.OwnerID, &campaign.Subject, &campaign.BodyHTML); err != nil {
			rows.Close()
			logAudit(fmt.Sprintf("[Dispatcher][ERROR] campaign scan failed: %v", err))
			return
		}
		due = append(due, campaign)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] campaign scan failed: %v", err))
		return
	}
	if len(due) == 0 {
		return
	}

	smtpMailer, err := mailer.FromEnv()
	if err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] mailer unavailable, %d campaigns deferred: %v", len(due), err))
		return
	}

	for _, campaign := range due {
		dispatchCampaign(ctx, db, smtpMailer, campaign)
	}
}

func dispatchCampaign(ctx context.Context, db *pgxpool.Pool, smtpMailer *mailer.Mailer, campaign dueCampaign) {
	var ownerName string
	if err := db.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, campaign.OwnerID).Scan(&ownerName); err != nil || ownerName == "" {
		ownerName = "Danışmanınız"
	}

	recipients, err := loadRecipients(ctx, db, campaign.ID)
	if err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] recipients load failed for campaign %s: %v", campaign.ID, err))
		markCampaign(ctx, db, campaign.ID, "FAILED")
		return
	}

	currentDate := emailtpl.FormatDateTR(time.Now())
	var sent int
	var failed []string
	var previewSubject, previewText string

	for _, recipient := range recipients {
		if recipient.ClientEmail == "" {
			failed = append(failed, recipient.ClientName)
			continue
		}

		startDate := ""
		if recipient.CreatedAt != nil {
			startDate = emailtpl.FormatDateTR(*recipient.CreatedAt)
		}
		replacements := map[string]string{
			"{{CONSULTANT_NAME}}":   ownerName,
			"{{CURRENT_DATE}}":      currentDate,
			"{{CLIENT_NAME}}":       recipient.ClientName,
			"{{CLIENT_EMAIL}}":      recipient.ClientEmail,
			"{{CURRENT_SAVINGS}}":   emailtpl.FormatCurrency(recipient.CurrentSavings),
			"{{FIRST_SAVINGS}}":     emailtpl.FormatCurrency(recipient.FirstSavings),
			"{{SAVINGS_GROWTH}}":    emailtpl.FormatCurrency(recipient.CurrentSavings.Sub(recipient.FirstSavings)),
			"{{CLIENT_START_DATE}}": startDate,
			"{{CLIENT_LIST}}":       "",
		}

		subject := applyReplacements(campaign.Subject, replacements)
		bodyHTML := applyReplacements(campaign.BodyHTML, replacements)
		bodyText := sanitize.PlainTextFromHTML(bodyHTML)

		err := smtpMailer.Send(mailer.Message{
			To:      []string{recipient.ClientEmail},
			Subject: subject,
			Text:    bodyText,
			HTML:    bodyHTML,
		})
		if err != nil {
			logAudit(fmt.Sprintf("[Dispatcher][ERROR] send failed for %s: %v", recipient.ClientEmail, err))
			failed = append(failed, recipient.ClientEmail)
			continue
		}
		sent++
		if previewSubject == "" {
			previewSubject = subject
			previewText = bodyText
		}
	}

	status := "SENT"
	if sent == 0 {
		status = "FAILED"
	}
	markCampaign(ctx, db, campaign.ID, status)

	_, err = db.Exec(ctx, `
		UPDATE communication_channel_statuses
		SET status = $1, completed_at = now()
		WHERE campaign_id = $2 AND status = 'SCHEDULED'
	`, status, campaign.ID)
	if err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] channel status update failed for campaign %s: %v", campaign.ID, err))
	}

	if sent > 0 {
		previewText = sanitize.Truncate(previewText, 160)
		_, err := db.Exec(ctx, `
			INSERT INTO email_logs (owner_id, subject, body_preview, recipients, sent_at)
			VALUES ($1, $2, $3, $4, now())
		`, campaign.OwnerID, previewSubject, previewText, sent)
		if err != nil {
			logAudit(fmt.Sprintf("[Dispatcher][ERROR] email log insert failed for campaign %s: %v", campaign.ID, err))
		}
	}

	message := fmt.Sprintf("Planlanan kampanya %d müşteriye gönderildi.", sent)
	if len(failed) > 0 {
		message = fmt.Sprintf("Planlanan kampanya %d müşteriye gönderildi, %d adres başarısız oldu (%s).",
			sent, len(failed), strings.Join(failed, ", "))
	}
	notification.Default.Publish(campaign.OwnerID, "campaign", message)
	logAudit(fmt.Sprintf("[Dispatcher] campaign %s dispatched: sent=%d failed=%d", campaign.ID, sent, len(failed)))
}

func loadRecipients(ctx context.Context, db *pgxpool.Pool, campaignID string) ([]dispatchRecipient, error) {
	rows, err := db.Query(ctx, `
		SELECT r.client_id, r.client_name, r.client_email,
		       COALESCE(c.first_savings, 0), COALESCE(c.current_savings, 0), c.created_at
		FROM communication_recipients r
		LEFT JOIN clients c ON c.id = r.client_id
		WHERE r.campaign_id = $1
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []dispatchRecipient
	for rows.Next() {
		var recipient dispatchRecipient
		if err := rows.Scan(&recipient.ClientID, &recipient.ClientName, &recipient.ClientEmail,
			&recipient.FirstSavings, &recipient.CurrentSavings, &recipient.CreatedAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	return recipients, rows.Err()
}

func markCampaign(ctx context.Context, db *pgxpool.Pool, campaignID, status string) {
	if _, err := db.Exec(ctx,
		`UPDATE communication_campaigns SET status = $1 WHERE id = $2`,
		status, campaignID); err != nil {
		logAudit(fmt.Sprintf("[Dispatcher][ERROR] campaign status update failed for %s: %v", campaignID, err))
	}
}

func applyReplacements(template string, replacements map[string]string) string {
	out := template
	for token, value := range replacements {
		out = strings.ReplaceAll(out, token, value)
	}
	return out
}
