package communications

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
)

type campaignSummary struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CreatedAt   *time.Time `json:"created_at"`
}

type campaignRecipient struct {
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
}

// ListCampaigns returns the owner's campaigns, newest first.
func ListCampaigns(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			UserID string `json:"user_id"`
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

		rows, err := pgxPool.Query(ctx, `
			SELECT id, subject, status, scheduled_at, created_at
			FROM communication_campaigns
			WHERE owner_id = $1
			ORDER BY created_at DESC
		`, session.UserID)
		if err != nil {
			api.LogError("campaign list failed: %v", err)
			api.RespondWithPayload(w, false, "Kampanyalar alınamadı.", nil)
			return
		}
		defer rows.Close()

		campaigns := []campaignSummary{}
		for rows.Next() {
			var c campaignSummary
			if err := rows.Scan(&c.ID, &c.Subject, &c.Status, &c.ScheduledAt, &c.CreatedAt); err != nil {
				api.LogError("campaign scan failed: %v", err)
				api.RespondWithPayload(w, false, "Kampanyalar alınamadı.", nil)
				return
			}
			campaigns = append(campaigns, c)
		}

		api.RespondWithPayload(w, true, "", campaigns)
	}
}

// CampaignDetail returns one campaign with its bodies, reasons and
// recipients.
func CampaignDetail(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			UserID     string `json:"user_id"`
			CampaignID string `json:"campaign_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CampaignID == "" {
			api.RespondWithResult(w, false, "İstek anlaşılamadı.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		var (
			summary     campaignSummary
			bodyHTML    string
			bodyText    string
			reasonsJSON *string
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT id, subject, status, scheduled_at, created_at, body_html, body_text, reasons_json
			FROM communication_campaigns
			WHERE id = $1 AND owner_id = $2
		`, req.CampaignID, session.UserID).Scan(
			&summary.ID, &summary.Subject, &summary.Status, &summary.ScheduledAt,
			&summary.CreatedAt, &bodyHTML, &bodyText, &reasonsJSON)
		if err != nil {
			if err != pgx.ErrNoRows {
				api.LogError("campaign detail failed: %v", err)
			}
			api.RespondWithPayload(w, false, "Kampanya bulunamadı.", nil)
			return
		}

		var reasons []string
		if reasonsJSON != nil {
			if err := json.Unmarshal([]byte(*reasonsJSON), &reasons); err != nil {
				reasons = nil
			}
		}

		recipientRows, err := pgxPool.Query(ctx, `
			SELECT client_name, client_email FROM communication_recipients
			WHERE campaign_id = $1 ORDER BY client_name ASC
		`, req.CampaignID)
		if err != nil {
			api.LogError("campaign recipients failed: %v", err)
			api.RespondWithPayload(w, false, "Kampanya bulunamadı.", nil)
			return
		}
		defer recipientRows.Close()

		recipients := []campaignRecipient{}
		for recipientRows.Next() {
			var recipient campaignRecipient
			if err := recipientRows.Scan(&recipient.ClientName, &recipient.ClientEmail); err != nil {
				api.LogError("recipient scan failed: %v", err)
				api.RespondWithPayload(w, false, "Kampanya bulunamadı.", nil)
				return
			}
			recipients = append(recipients, recipient)
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"campaign":      summary,
			"body_html":     bodyHTML,
			"body_text":     bodyText,
			"reasons":       reasons,
			"reason_labels": FormatReasonLabels(reasons),
			"recipients":    recipients,
		})
	}
}
