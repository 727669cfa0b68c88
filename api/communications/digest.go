package communications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/api/clients"
	"BesCrmSaas/internal/emailtpl"
	"BesCrmSaas/internal/mailer"
	"BesCrmSaas/internal/sanitize"
)

// SendClientDigests delivers the digest template to an explicit selection of
// clients, unlike the roster-wide send on the clients service.
func SendClientDigests(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			UserID    string   `json:"user_id"`
			ClientIDs []string `json:"client_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "İstek anlaşılamadı.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		ids := make([]string, 0, len(req.ClientIDs))
		for _, id := range req.ClientIDs {
			if trimmed := sanitize.Text(strings.TrimSpace(id)); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
		if len(ids) == 0 {
			api.RespondWithResult(w, false, "Gönderilecek en az bir müşteri seçmelisiniz.")
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT name, email, COALESCE(first_savings, 0), COALESCE(current_savings, 0), created_at
			FROM clients
			WHERE owner_id = $1 AND deleted_at IS NULL AND id = ANY($2)
			ORDER BY name ASC
		`, session.UserID, ids)
		if err != nil {
			api.LogError("digest selection fetch failed: %v", err)
			api.RespondWithResult(w, false, "Seçilen müşteriler alınamadı.")
			return
		}
		defer rows.Close()

		var digestClients []emailtpl.DigestClient
		for rows.Next() {
			var (
				client emailtpl.DigestClient
				email  *string
			)
			if err := rows.Scan(&client.Name, &email, &client.FirstSavings, &client.CurrentSavings, &client.StartDate); err != nil {
				api.LogError("digest selection scan failed: %v", err)
				api.RespondWithResult(w, false, "Seçilen müşteriler alınamadı.")
				return
			}
			if email != nil {
				client.Email = *email
			}
			digestClients = append(digestClients, client)
		}
		if len(digestClients) == 0 {
			api.RespondWithResult(w, false, "Seçilen müşteriler bulunamadı.")
			return
		}

		subjectTemplate, bodyTemplate, _ := clients.LoadEmailTemplate(ctx, pgxPool, session.UserID)
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

		sent, failed, preview := clients.DeliverDigests(smtpMailer, subjectTemplate, bodyTemplate, consultantName, digestClients)

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
