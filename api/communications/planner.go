package communications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/internal/charts"
	"BesCrmSaas/internal/config"
	"BesCrmSaas/internal/emailtpl"
	"BesCrmSaas/internal/mailer"
	"BesCrmSaas/internal/sanitize"
)

type plannerRequest struct {
	UserID       string   `json:"user_id"`
	ClientIDs    []string `json:"client_ids"`
	Reasons      []string `json:"reasons"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Channels     []string `json:"channels"`
	SendNow      bool     `json:"send_now"`
	ScheduleDate string   `json:"schedule_date"`
	ScheduleTime string   `json:"schedule_time"`
}

type plannerClient struct {
	ID             string
	Name           string
	Email          string
	FirstSavings   decimal.Decimal
	CurrentSavings decimal.Decimal
	CreatedAt      *time.Time
}

func validatePlanner(req *plannerRequest, bodyText string) string {
	subjectLen := utf8.RuneCountInString(req.Subject)
	switch {
	case len(req.ClientIDs) == 0:
		return "En az bir müşteri seçmelisiniz."
	case len(req.Reasons) == 0:
		return "En az bir iletişim sebebi seçmelisiniz."
	case subjectLen < 3:
		return "Konu en az 3 karakter olmalıdır."
	case subjectLen > 140:
		return "Konu en fazla 140 karakter olabilir."
	case req.Body == "":
		return "İletişim içeriği boş olamaz."
	case utf8.RuneCountInString(req.Body) > 8000:
		return "İletişim içeriği en fazla 8000 karakter olabilir."
	case utf8.RuneCountInString(bodyText) < 20:
		return "İletişim içeriği en az 20 karakter olmalıdır."
	case len(req.Channels) == 0:
		return "En az bir iletişim kanalı seçmelisiniz."
	}
	if !req.SendNow {
		if req.ScheduleDate == "" {
			return "Lütfen planlanan tarihi seçin."
		}
		if req.ScheduleTime == "" {
			return "Lütfen planlanan saati seçin."
		}
	}
	return ""
}

// PlanCommunication validates the planner form, builds the portfolio summary
// block, then either delivers the campaign immediately or stores it as
// SCHEDULED for the dispatcher.
func PlanCommunication(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req plannerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "Formu kontrol edip tekrar deneyin.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Bu işlem için yetkiniz bulunmuyor.")
			return
		}

		req.Subject = sanitize.Text(req.Subject)
		req.Body = sanitize.RichText(req.Body)
		bodyText := sanitize.PlainTextFromHTML(req.Body)
		for i, id := range req.ClientIDs {
			req.ClientIDs[i] = sanitize.Text(id)
		}
		for i, reason := range req.Reasons {
			req.Reasons[i] = sanitize.Text(reason)
		}
		for i, channel := range req.Channels {
			req.Channels[i] = sanitize.Text(channel)
		}

		if msg := validatePlanner(&req, bodyText); msg != "" {
			api.RespondWithResult(w, false, msg)
			return
		}

		loc, err := time.LoadLocation(config.DefaultTimeZone)
		if err != nil {
			loc = time.Local
		}
		var scheduledAt *time.Time
		if req.SendNow {
			now := time.Now()
			scheduledAt = &now
		} else {
			ts, err := time.ParseInLocation("2006-01-02T15:04", req.ScheduleDate+"T"+req.ScheduleTime, loc)
			if err == nil {
				scheduledAt = &ts
			}
		}

		clients, err := fetchPlannerClients(ctx, pgxPool, session.UserID, req.ClientIDs)
		if err != nil {
			api.LogError("planner client fetch failed: %v", err)
			api.RespondWithResult(w, false, "Seçilen müşteriler alınamadı. Lütfen tekrar deneyin.")
			return
		}
		if len(clients) != len(req.ClientIDs) {
			api.RespondWithResult(w, false, "Seçilen müşterilerden bazıları bulunamadı. Lütfen sayfayı yenileyip tekrar deneyin.")
			return
		}

		totalFirst := decimal.Zero
		totalCurrent := decimal.Zero
		for _, client := range clients {
			totalFirst = totalFirst.Add(client.FirstSavings)
			totalCurrent = totalCurrent.Add(client.CurrentSavings)
		}
		change := totalCurrent.Sub(totalFirst)

		growthLabel := "+0.00"
		if !totalFirst.IsZero() {
			growth := change.Div(totalFirst).Mul(decimal.NewFromInt(100))
			growthLabel = growth.StringFixed(2)
			if !growth.IsNegative() {
				growthLabel = "+" + growthLabel
			}
		}

		chartImage := charts.SavingsLineChart(ctx,
			[]string{"Geçen Ay", "Bugün"},
			[]float64{totalFirst.InexactFloat64(), totalCurrent.InexactFloat64()})

		summaryHTML := buildSummaryBlock(totalFirst, totalCurrent, change, growthLabel, chartImage)
		finalBodyHTML := req.Body + summaryHTML
		finalBodyText := sanitize.PlainTextFromHTML(finalBodyHTML)

		var missingEmail []string
		var withEmail []plannerClient
		for _, client := range clients {
			if client.Email == "" {
				label := client.Name
				if label == "" {
					label = client.ID
				}
				missingEmail = append(missingEmail, label)
				continue
			}
			withEmail = append(withEmail, client)
		}

		if req.SendNow && len(withEmail) == 0 {
			api.RespondWithResult(w, false, "Seçilen müşteriler için geçerli e-posta adresi bulunamadı. Lütfen adresleri ekleyin.")
			return
		}

		var (
			sent           int
			failed         []string
			previewSubject string
			previewText    string
		)
		if req.SendNow {
			failed = append(failed, missingEmail...)
			sent, failed, previewSubject, previewText = sendPlannedEmails(session.Name, req.Subject, finalBodyHTML, withEmail, failed)
			if sent == 0 {
				api.RespondWithResult(w, false, "E-posta gönderilemedi. Lütfen SMTP ayarlarınızı kontrol edin.")
				return
			}
		}

		status := "DRAFT"
		if req.SendNow {
			status = "COMPLETED"
		} else if scheduledAt != nil {
			status = "SCHEDULED"
		}

		reasonsJSON, _ := json.Marshal(req.Reasons)

		var campaignID string
		err = pgxPool.QueryRow(ctx, `
			INSERT INTO communication_campaigns (owner_id, subject, body_html, body_text, reasons_json, scheduled_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
		`, session.UserID, req.Subject, finalBodyHTML, finalBodyText, string(reasonsJSON), scheduledAt, status).Scan(&campaignID)
		if err != nil {
			api.LogError("campaign insert failed: %v", err)
			api.RespondWithResult(w, false, "Kampanya kaydedilemedi. Lütfen tekrar deneyin.")
			return
		}

		for _, client := range clients {
			_, err := pgxPool.Exec(ctx, `
				INSERT INTO communication_recipients (campaign_id, client_id, client_name, client_email)
				VALUES ($1, $2, $3, $4)
			`, campaignID, client.ID, client.Name, client.Email)
			if err != nil {
				api.LogError("recipient insert failed: %v", err)
			}
		}

		channelStatus := "PENDING"
		var completedAt *time.Time
		if req.SendNow {
			channelStatus = "SENT"
			now := time.Now()
			completedAt = &now
		} else if scheduledAt != nil {
			channelStatus = "SCHEDULED"
		}
		for _, channel := range req.Channels {
			_, err := pgxPool.Exec(ctx, `
				INSERT INTO communication_channel_statuses (campaign_id, channel, status, scheduled_at, completed_at)
				VALUES ($1, $2, $3, $4, $5)
			`, campaignID, strings.ToUpper(channel), channelStatus, scheduledAt, completedAt)
			if err != nil {
				api.LogError("channel status insert failed: %v", err)
			}
		}

		if req.SendNow {
			if previewSubject == "" {
				previewSubject = req.Subject
			}
			if previewText == "" {
				previewText = finalBodyText
			}
			previewText = sanitize.Truncate(previewText, 160)
			_, err := pgxPool.Exec(ctx, `
				INSERT INTO email_logs (owner_id, subject, body_preview, recipients, sent_at)
				VALUES ($1, $2, $3, $4, now())
			`, session.UserID, previewSubject, previewText, sent)
			if err != nil {
				api.LogError("email log insert failed: %v", err)
			}

			message := fmt.Sprintf("E-posta %d müşteriye gönderildi", sent)
			if len(failed) > 0 {
				message += ", başarısız: " + strings.Join(failed, ", ")
			}
			api.RespondWithResult(w, true, message+".")
			return
		}

		api.RespondWithResult(w, true, fmt.Sprintf("%d müşteri için iletişim planı hazır.", len(req.ClientIDs)))
	}
}

func fetchPlannerClients(ctx context.Context, pgxPool *pgxpool.Pool, ownerID string, clientIDs []string) ([]plannerClient, error) {
	rows, err := pgxPool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(first_savings, 0), COALESCE(current_savings, 0), created_at
		FROM clients
		WHERE owner_id = $1 AND deleted_at IS NULL AND id = ANY($2)
		ORDER BY name ASC
	`, ownerID, clientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []plannerClient
	for rows.Next() {
		var client plannerClient
		if err := rows.Scan(&client.ID, &client.Name, &client.Email, &client.FirstSavings, &client.CurrentSavings, &client.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func buildSummaryBlock(totalFirst, totalCurrent, change decimal.Decimal, growthLabel, chartImage string) string {
	var b strings.Builder
	b.WriteString(`<div style="margin-top:24px;">`)
	b.WriteString(`<p style="margin:0 0 12px 0; font-size:15px;">Bu hafta itibarıyla bireysel emeklilik portföyünüz:</p>`)
	b.WriteString(`<p style="margin:4px 0; font-size:15px;">💰 <strong>Toplam Birikim:</strong> ` + emailtpl.FormatCurrency(totalCurrent) + `</p>`)
	b.WriteString(`<p style="margin:4px 0; font-size:15px;">📊 <strong>Geçen Ay:</strong> ` + emailtpl.FormatCurrency(totalFirst) + `</p>`)
	b.WriteString(`<p style="margin:4px 0; font-size:15px;">📈 <strong>Değişim:</strong> ` + growthLabel + `%</p>`)
	b.WriteString(`<p style="margin:4px 0 16px 0; font-size:15px;">💼 <strong>Aylık Katkı:</strong> ` + emailtpl.FormatCurrency(change) + `</p>`)
	b.WriteString(`</div>`)
	if chartImage != "" {
		b.WriteString(`<div style="margin:20px 0; text-align:center;"><img src="` + chartImage +
			`" alt="Birikim değişimi grafiği" style="max-width:100%; border:1px solid #d1d5db; border-radius:12px;" /></div>`)
	}
	return b.String()
}

// sendPlannedEmails personalises the campaign per recipient and delivers it,
// substituting the digest placeholder tokens with each client's figures.
func sendPlannedEmails(consultantName, subject, bodyHTML string, clients []plannerClient, failed []string) (int, []string, string, string) {
	if consultantName == "" {
		consultantName = "Danışmanınız"
	}

	smtpMailer, err := mailer.FromEnv()
	if err != nil {
		api.LogError("mailer unavailable: %v", err)
		for _, client := range clients {
			failed = append(failed, client.Email)
		}
		return 0, failed, "", ""
	}

	var (
		sent           int
		previewSubject string
		previewText    string
	)
	currentDate := emailtpl.FormatDateTR(time.Now())

	for _, client := range clients {
		startDate := ""
		if client.CreatedAt != nil {
			startDate = emailtpl.FormatDateTR(*client.CreatedAt)
		}
		replacements := map[string]string{
			"{{CONSULTANT_NAME}}":   consultantName,
			"{{CURRENT_DATE}}":      currentDate,
			"{{CLIENT_NAME}}":       client.Name,
			"{{CLIENT_EMAIL}}":      client.Email,
			"{{CURRENT_SAVINGS}}":   emailtpl.FormatCurrency(client.CurrentSavings),
			"{{FIRST_SAVINGS}}":     emailtpl.FormatCurrency(client.FirstSavings),
			"{{SAVINGS_GROWTH}}":    emailtpl.FormatCurrency(client.CurrentSavings.Sub(client.FirstSavings)),
			"{{CLIENT_START_DATE}}": startDate,
			"{{CLIENT_LIST}}":       "",
		}

		personalSubject := applyReplacements(subject, replacements)
		personalHTML := applyReplacements(bodyHTML, replacements)
		personalText := sanitize.PlainTextFromHTML(personalHTML)

		err := smtpMailer.Send(mailer.Message{
			To:      []string{client.Email},
			Subject: personalSubject,
			Text:    personalText,
			HTML:    personalHTML,
		})
		if err != nil {
			api.LogError("planned send failed for %s: %v", client.Email, err)
			failed = append(failed, client.Email)
			continue
		}
		sent++
		if previewSubject == "" {
			previewSubject = personalSubject
			previewText = personalText
		}
	}
	return sent, failed, previewSubject, previewText
}

func applyReplacements(template string, replacements map[string]string) string {
	out := template
	for token, value := range replacements {
		out = strings.ReplaceAll(out, token, value)
	}
	return out
}
