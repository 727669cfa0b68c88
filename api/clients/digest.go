package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/internal/emailtpl"
	"BesCrmSaas/internal/mailer"
	"BesCrmSaas/internal/sanitize"
)

// LoadEmailTemplate fetches the owner's saved digest template, or nil when
// they never customised it.
func LoadEmailTemplate(ctx context.Context, pgxPool *pgxpool.Pool, ownerID string) (subject, body string, found bool) {
	err := pgxPool.QueryRow(ctx,
		`SELECT subject, body FROM email_templates WHERE owner_id = $1`,
		ownerID).Scan(&subject, &body)
	if err != nil {
		return "", "", false
	}
	return subject, body, true
}

// SendSavingsDigest renders the owner's template once per active client and
// delivers each digest individually, so one bounced address never blocks the
// rest of the roster.
func SendSavingsDigest(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT name, email, COALESCE(first_savings, 0), COALESCE(current_savings, 0), created_at
			FROM clients
			WHERE owner_id = $1 AND deleted_at IS NULL
			ORDER BY name ASC
		`, session.UserID)
		if err != nil {
			api.LogError("digest client list failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri listesi alınamadı.")
			return
		}
		defer rows.Close()

		var clients []emailtpl.DigestClient
		for rows.Next() {
			var (
				client emailtpl.DigestClient
				email  *string
			)
			if err := rows.Scan(&client.Name, &email, &client.FirstSavings, &client.CurrentSavings, &client.StartDate); err != nil {
				api.LogError("digest client scan failed: %v", err)
				api.RespondWithResult(w, false, "Müşteri listesi alınamadı.")
				return
			}
			if email != nil {
				client.Email = *email
			}
			clients = append(clients, client)
		}
		if len(clients) == 0 {
			api.RespondWithResult(w, false, "E-posta gönderilecek müşteri bulunamadı.")
			return
		}

		subjectTemplate, bodyTemplate, _ := LoadEmailTemplate(ctx, pgxPool, session.UserID)
		consultantName := session.Name
		if consultantName == "" {
			consultantName = "Danışmanınız"
		}

		smtpMailer, err := mailer.FromEnv()
		if err != nil {
			api.LogError("mailer unavailable: %v", err)
			api.RespondWithResult(w, false, "Seçili müşterilere e-posta gönderilemedi.")
			return
		}

		sent, failed, preview := DeliverDigests(smtpMailer, subjectTemplate, bodyTemplate, consultantName, clients)

		if sent > 0 && preview != nil {
			bodyPreview := sanitize.Truncate(preview.Text, 120)
			_, err := pgxPool.Exec(ctx, `
				INSERT INTO email_logs (owner_id, subject, body_preview, recipients)
				VALUES ($1, $2, $3, $4)
			`, session.UserID, preview.Subject, bodyPreview, sent)
			if err != nil {
				api.LogError("email log insert failed: %v", err)
			}
		}

		switch {
		case sent == 0:
			api.RespondWithResult(w, false, "Seçili müşterilere e-posta gönderilemedi.")
		case len(failed) > 0:
			api.RespondWithResult(w, true, fmt.Sprintf(
				"%d müşteriye gönderildi, ancak %d adres başarısız oldu (%s).",
				sent, len(failed), strings.Join(failed, ", ")))
		default:
			api.RespondWithResult(w, true, fmt.Sprintf("Tasarruf özeti %d müşteriye gönderildi.", sent))
		}
	}
}

// DeliverDigests renders and sends one digest per client, returning the sent
// count, the failed addresses and the first rendered digest as a preview.
func DeliverDigests(m *mailer.Mailer, subjectTemplate, bodyTemplate, consultantName string, clients []emailtpl.DigestClient) (int, []string, *emailtpl.Digest) {
	var (
		sent    int
		failed  []string
		preview *emailtpl.Digest
	)
	now := time.Now()

	for _, client := range clients {
		if client.Email == "" {
			label := client.Name
			if label == "" {
				label = "E-posta bulunmuyor"
			}
			failed = append(failed, label)
			continue
		}

		digest := emailtpl.RenderDigest(emailtpl.RenderOptions{
			SubjectTemplate: subjectTemplate,
			BodyTemplate:    bodyTemplate,
			ConsultantName:  consultantName,
			Clients: []emailtpl.DigestClient{{
				Name:           sanitize.Text(client.Name),
				Email:          client.Email,
				FirstSavings:   client.FirstSavings,
				CurrentSavings: client.CurrentSavings,
				StartDate:      client.StartDate,
			}},
			CurrentDate: now,
		})

		err := m.Send(mailer.Message{
			To:      []string{client.Email},
			Subject: digest.Subject,
			Text:    digest.Text,
			HTML:    digest.HTML,
		})
		if err != nil {
			api.LogError("digest send failed for %s: %v", client.Email, err)
			failed = append(failed, client.Email)
			continue
		}
		sent++
		if preview == nil {
			copied := digest
			preview = &copied
		}
	}
	return sent, failed, preview
}
