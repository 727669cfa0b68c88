package communications

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/internal/emailtpl"
	"BesCrmSaas/internal/sanitize"
)

type templateRequest struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func validateTemplate(subject, body string) string {
	subjectLen := utf8.RuneCountInString(subject)
	bodyLen := utf8.RuneCountInString(body)
	switch {
	case subjectLen < 3:
		return "Konu en az 3 karakter olmalıdır."
	case subjectLen > 140:
		return "Konu en fazla 140 karakter olabilir."
	case bodyLen < 20:
		return "E-posta gövdesi en az 20 karakter olmalıdır."
	case bodyLen > 8000:
		return "E-posta gövdesi en fazla 8000 karakter olabilir."
	}
	return ""
}

func upsertTemplate(r *http.Request, pgxPool *pgxpool.Pool, ownerID, subject, body string) error {
	_, err := pgxPool.Exec(r.Context(), `
		INSERT INTO email_templates (owner_id, subject, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body
	`, ownerID, subject, body)
	return err
}

// SaveEmailTemplate stores the owner's customised digest template.
func SaveEmailTemplate(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "Şablon kaydedilemedi.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		subject := sanitize.Text(req.Subject)
		body := sanitize.Text(req.Body)
		if msg := validateTemplate(subject, body); msg != "" {
			api.RespondWithResult(w, false, msg)
			return
		}

		if err := upsertTemplate(r, pgxPool, session.UserID, subject, body); err != nil {
			api.LogError("email template upsert failed: %v", err)
			api.RespondWithResult(w, false, "Şablon kaydedilemedi. Daha sonra tekrar deneyin.")
			return
		}

		api.RespondWithResult(w, true, "Şablon güncellendi.")
	}
}

// ResetEmailTemplate restores the default digest template for the owner.
func ResetEmailTemplate(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "Varsayılan şablon geri yüklenemedi.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		if err := upsertTemplate(r, pgxPool, session.UserID, emailtpl.DefaultSubject, emailtpl.DefaultBody); err != nil {
			api.LogError("email template reset failed: %v", err)
			api.RespondWithResult(w, false, "Varsayılan şablon geri yüklenemedi.")
			return
		}

		api.RespondWithResult(w, true, "Varsayılan şablon geri yüklendi.")
	}
}

// ListPlaceholders serves the placeholder catalogue the template editor shows.
func ListPlaceholders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, true, "", emailtpl.Placeholders)
	}
}

// ListReasons serves the communication reason catalogue for the planner.
func ListReasons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, true, "", CommunicationReasons)
	}
}

// ListMarketTopics serves the AI market-topic catalogue.
func ListMarketTopics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithPayload(w, true, "", MarketTopics)
	}
}
