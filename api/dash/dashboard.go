package dash

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/internal/notification"
)

var turkishMonths = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

func monthLabelTR(t time.Time) string {
	return fmt.Sprintf("%s %d", turkishMonths[t.Month()-1], t.Year())
}

type monthlyPoint struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type uploadInfo struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	TotalRecords int        `json:"total_records"`
	ProcessedAt  *time.Time `json:"processed_at"`
}

type recentClient struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     *string    `json:"email"`
	CreatedAt *time.Time `json:"created_at"`
}

type recentEmail struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Recipients int        `json:"recipients"`
	SentAt     *time.Time `json:"sent_at"`
}

// Dashboard aggregates the owner's portfolio stats, the monthly savings trend
// from snapshots and the recent activity feeds into one JSON payload.
func Dashboard(pgxPool *pgxpool.Pool) http.HandlerFunc {
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

		var (
			clientCount  int
			totalFirst   decimal.Decimal
			totalCurrent decimal.Decimal
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(SUM(first_savings), 0), COALESCE(SUM(current_savings), 0)
			FROM clients
			WHERE owner_id = $1 AND deleted_at IS NULL
		`, session.UserID).Scan(&clientCount, &totalFirst, &totalCurrent)
		if err != nil {
			api.LogError("dashboard totals failed: %v", err)
			api.RespondWithPayload(w, false, "Panel verileri alınamadı.", nil)
			return
		}

		growth := 0.0
		if !totalFirst.IsZero() {
			growth = totalCurrent.Sub(totalFirst).Div(totalFirst).InexactFloat64()
		}

		var latestUpload *uploadInfo
		var upload uploadInfo
		err = pgxPool.QueryRow(ctx, `
			SELECT id, filename, total_records, processed_at
			FROM uploads
			WHERE owner_id = $1
			ORDER BY processed_at DESC
			LIMIT 1
		`, session.UserID).Scan(&upload.ID, &upload.Filename, &upload.TotalRecords, &upload.ProcessedAt)
		if err == nil {
			latestUpload = &upload
		}

		recentClients, err := fetchRecentClients(r, pgxPool, session.UserID)
		if err != nil {
			api.LogError("dashboard recent clients failed: %v", err)
			api.RespondWithPayload(w, false, "Panel verileri alınamadı.", nil)
			return
		}

		recentEmails, err := fetchRecentEmails(r, pgxPool, session.UserID)
		if err != nil {
			api.LogError("dashboard recent emails failed: %v", err)
			api.RespondWithPayload(w, false, "Panel verileri alınamadı.", nil)
			return
		}

		monthlySeries, err := fetchMonthlySeries(r, pgxPool, session.UserID)
		if err != nil {
			api.LogError("dashboard snapshot trend failed: %v", err)
			api.RespondWithPayload(w, false, "Panel verileri alınamadı.", nil)
			return
		}

		var lastMonth, currentMonth, delta *float64
		if len(monthlySeries) >= 1 {
			v := monthlySeries[len(monthlySeries)-1].Amount
			currentMonth = &v
		}
		if len(monthlySeries) >= 2 {
			v := monthlySeries[len(monthlySeries)-2].Amount
			lastMonth = &v
			d := *currentMonth - *lastMonth
			delta = &d
		}

		sparkline := monthlySeries
		if len(sparkline) > 6 {
			sparkline = sparkline[len(sparkline)-6:]
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"client_count":   clientCount,
			"total_first":    totalFirst.InexactFloat64(),
			"total_current":  totalCurrent.InexactFloat64(),
			"growth":         growth,
			"latest_upload":  latestUpload,
			"recent_clients": recentClients,
			"recent_emails":  recentEmails,
			"monthly_series": monthlySeries,
			"last_month":     lastMonth,
			"current_month":  currentMonth,
			"delta":          delta,
			"sparkline":      sparkline,
		})
	}
}

func fetchRecentClients(r *http.Request, pgxPool *pgxpool.Pool, ownerID string) ([]recentClient, error) {
	rows, err := pgxPool.Query(r.Context(), `
		SELECT id, name, email, created_at
		FROM clients
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 5
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []recentClient{}
	for rows.Next() {
		var c recentClient
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func fetchRecentEmails(r *http.Request, pgxPool *pgxpool.Pool, ownerID string) ([]recentEmail, error) {
	rows, err := pgxPool.Query(r.Context(), `
		SELECT id, subject, recipients, sent_at
		FROM email_logs
		WHERE owner_id = $1
		ORDER BY sent_at DESC
		LIMIT 5
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []recentEmail{}
	for rows.Next() {
		var e recentEmail
		if err := rows.Scan(&e.ID, &e.Subject, &e.Recipients, &e.SentAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// fetchMonthlySeries buckets the latest snapshots by month keeping the
// highest amount seen in each bucket, mirroring how the trend card reads.
func fetchMonthlySeries(r *http.Request, pgxPool *pgxpool.Pool, ownerID string) ([]monthlyPoint, error) {
	rows, err := pgxPool.Query(r.Context(), `
		SELECT s.amount, s.recorded_at
		FROM savings_snapshots s
		JOIN clients c ON c.id = s.client_id
		WHERE c.owner_id = $1
		ORDER BY s.recorded_at DESC
		LIMIT 60
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type bucket struct {
		label  string
		amount float64
	}
	buckets := make(map[string]bucket)
	for rows.Next() {
		var (
			amount     decimal.Decimal
			recordedAt time.Time
		)
		if err := rows.Scan(&amount, &recordedAt); err != nil {
			return nil, err
		}
		key := recordedAt.Format("2006-01")
		value := amount.InexactFloat64()
		if existing, ok := buckets[key]; !ok || value >= existing.amount {
			buckets[key] = bucket{label: monthLabelTR(recordedAt), amount: value}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	series := make([]monthlyPoint, 0, len(keys))
	for _, key := range keys {
		series = append(series, monthlyPoint{Label: buckets[key].label, Amount: buckets[key].amount})
	}
	return series, nil
}

// Notifications serves the in-memory event feed for the owner.
func Notifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		api.RespondWithPayload(w, true, "", notification.Default.Recent(session.UserID))
	}
}
