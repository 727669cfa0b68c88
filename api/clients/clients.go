package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/api/clients/importer"
)

var allowedClientTypes = map[string]bool{"BES": true, "ES": true, "BES+ES": true}

type clientForm struct {
	UserID          string          `json:"user_id"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	BirthDate       string          `json:"birth_date"`
	ClientType      string          `json:"client_type"`
	PolicyType      string          `json:"policy_type"`
	PolicyStartDate string          `json:"policy_start_date"`
	PolicyEndDate   string          `json:"policy_end_date"`
	FirstSavings    decimal.Decimal `json:"first_savings"`
	CurrentSavings  decimal.Decimal `json:"current_savings"`
}

// validate mirrors the form rules the UI enforces, so a raw API call cannot
// sneak an invalid record past them.
func (f *clientForm) validate() string {
	if len(strings.TrimSpace(f.Name)) < 2 {
		return "Müşteri adı gerekli."
	}
	if !importer.ValidEmail(strings.TrimSpace(f.Email)) {
		return "Geçerli bir e-posta adresi gerekli."
	}
	if f.FirstSavings.IsNegative() {
		return "İlk tasarruf tutarı pozitif olmalı."
	}
	if f.CurrentSavings.IsNegative() {
		return "Güncel tasarruf tutarı pozitif olmalı."
	}
	return ""
}

func decodeForm(r *http.Request, form *clientForm) bool {
	return json.NewDecoder(r.Body).Decode(form) == nil
}

func requireSession(w http.ResponseWriter, userID string) *auth.UserSession {
	session := auth.SessionByUserID(userID)
	if session == nil {
		api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
		return nil
	}
	return session
}

// CreateClient inserts a new roster row and its initial savings snapshot.
func CreateClient(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}
		if msg := form.validate(); msg != "" {
			api.RespondWithResult(w, false, msg)
			return
		}

		var clientID string
		err := pgxPool.QueryRow(ctx, `
			INSERT INTO clients (owner_id, name, email, phone, first_savings, current_savings)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
		`, session.UserID, strings.TrimSpace(form.Name), strings.TrimSpace(form.Email),
			optionalString(form.Phone), form.FirstSavings, form.CurrentSavings).Scan(&clientID)
		if err != nil {
			api.LogError("client insert failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri oluşturulamadı.")
			return
		}

		_, err = pgxPool.Exec(ctx,
			`INSERT INTO savings_snapshots (client_id, amount) VALUES ($1, $2)`,
			clientID, form.CurrentSavings)
		if err != nil {
			api.LogError("snapshot insert failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri oluşturuldu ancak tasarruf kaydı eklenemedi.")
			return
		}

		api.RespondWithResult(w, true, "Müşteri oluşturuldu.")
	}
}

// UpdateClient rewrites a roster row. Optional columns are only touched when
// the schema carries them, and a snapshot is appended when the savings amount
// actually changed.
func UpdateClient(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) || form.ID == "" {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}
		if msg := form.validate(); msg != "" {
			api.RespondWithResult(w, false, msg)
			return
		}

		store := NewRosterStore(pgxPool, session.UserID)
		caps, err := store.Capabilities(ctx)
		if err != nil {
			api.LogError("clients capability check failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri verileri alınamadı.")
			return
		}

		var previousSavings decimal.Decimal
		err = pgxPool.QueryRow(ctx, `
			SELECT COALESCE(current_savings, 0) FROM clients
			WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		`, form.ID, session.UserID).Scan(&previousSavings)
		if err != nil {
			if err != pgx.ErrNoRows {
				api.LogError("client fetch failed: %v", err)
			}
			api.RespondWithResult(w, false, "Müşteri bulunamadı.")
			return
		}

		sets := []string{"name = $1", "email = $2", "phone = $3", "first_savings = $4", "current_savings = $5"}
		values := []interface{}{
			strings.TrimSpace(form.Name), strings.TrimSpace(form.Email),
			optionalString(form.Phone), form.FirstSavings, form.CurrentSavings,
		}
		next := 6
		add := func(column string, value interface{}) {
			sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
			values = append(values, value)
			next++
		}

		if caps.BirthDate {
			add("birth_date", importer.ParseDate(form.BirthDate))
		}
		if caps.PolicyColumns {
			clientType := strings.ToUpper(strings.TrimSpace(form.ClientType))
			if !allowedClientTypes[clientType] {
				add("client_type", nil)
			} else {
				add("client_type", clientType)
			}
			add("policy_type", optionalString(form.PolicyType))
			add("policy_start_date", importer.ParseDate(form.PolicyStartDate))
			add("policy_end_date", importer.ParseDate(form.PolicyEndDate))
		}

		query := fmt.Sprintf(
			"UPDATE clients SET %s WHERE id = $%d AND owner_id = $%d",
			strings.Join(sets, ", "), next, next+1,
		)
		values = append(values, form.ID, session.UserID)

		if _, err := pgxPool.Exec(ctx, query, values...); err != nil {
			api.LogError("client update failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri güncellenemedi.")
			return
		}

		if !previousSavings.Equal(form.CurrentSavings) {
			_, err := pgxPool.Exec(ctx,
				`INSERT INTO savings_snapshots (client_id, amount) VALUES ($1, $2)`,
				form.ID, form.CurrentSavings)
			if err != nil {
				api.LogError("snapshot insert failed: %v", err)
			}
		}

		api.RespondWithResult(w, true, "Müşteri güncellendi.")
	}
}

// DeleteClient soft-deletes one roster row.
func DeleteClient(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) || form.ID == "" {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}

		tag, err := pgxPool.Exec(ctx, `
			UPDATE clients SET deleted_at = now()
			WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		`, form.ID, session.UserID)
		if err != nil {
			api.LogError("client soft delete failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri silinemedi.")
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithResult(w, false, "Müşteri bulunamadı.")
			return
		}

		api.RespondWithResult(w, true, "Müşteri silindi.")
	}
}

// DeleteAllClients soft-deletes the owner's whole active roster.
func DeleteAllClients(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}

		tag, err := pgxPool.Exec(ctx, `
			UPDATE clients SET deleted_at = now()
			WHERE owner_id = $1 AND deleted_at IS NULL
		`, session.UserID)
		if err != nil {
			api.LogError("client bulk delete failed: %v", err)
			api.RespondWithResult(w, false, "Müşteriler silinemedi.")
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithResult(w, false, "Silinecek müşteri bulunmuyor.")
			return
		}

		api.RespondWithResult(w, true, strconv.FormatInt(tag.RowsAffected(), 10)+" müşteri silindi.")
	}
}

// RestoreClient clears the soft-delete marker of one row.
func RestoreClient(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) || form.ID == "" {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}

		tag, err := pgxPool.Exec(ctx, `
			UPDATE clients SET deleted_at = NULL
			WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL
		`, form.ID, session.UserID)
		if err != nil {
			api.LogError("client restore failed: %v", err)
			api.RespondWithResult(w, false, "Müşteri geri alınamadı.")
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithResult(w, false, "Geri alınacak müşteri bulunamadı.")
			return
		}

		api.RespondWithResult(w, true, "Müşteri geri alındı.")
	}
}

type clientRow struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           *string    `json:"phone"`
	ClientType      *string    `json:"client_type,omitempty"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	PolicyType      *string    `json:"policy_type,omitempty"`
	PolicyStartDate *time.Time `json:"policy_start_date,omitempty"`
	PolicyEndDate   *time.Time `json:"policy_end_date,omitempty"`
	FirstSavings    string     `json:"first_savings"`
	CurrentSavings  string     `json:"current_savings"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

func scanClientRows(ctx context.Context, pgxPool *pgxpool.Pool, caps SchemaCapabilities, ownerID string, clientID string) ([]clientRow, error) {
	columns := []string{"id", "name", "email", "phone", "COALESCE(first_savings, 0)", "COALESCE(current_savings, 0)", "created_at"}
	if caps.BirthDate {
		columns = append(columns, "birth_date")
	}
	if caps.PolicyColumns {
		columns = append(columns, "client_type", "policy_type", "policy_start_date", "policy_end_date")
	}

	query := "SELECT " + strings.Join(columns, ", ") +
		" FROM clients WHERE owner_id = $1 AND deleted_at IS NULL"
	args := []interface{}{ownerID}
	if clientID != "" {
		query += " AND id = $2"
		args = append(args, clientID)
	}
	query += " ORDER BY name ASC"

	rows, err := pgxPool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []clientRow
	for rows.Next() {
		var (
			c          clientRow
			first, cur decimal.Decimal
		)
		dest := []interface{}{&c.ID, &c.Name, &c.Email, &c.Phone, &first, &cur, &c.CreatedAt}
		if caps.BirthDate {
			dest = append(dest, &c.BirthDate)
		}
		if caps.PolicyColumns {
			dest = append(dest, &c.ClientType, &c.PolicyType, &c.PolicyStartDate, &c.PolicyEndDate)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		c.FirstSavings = first.String()
		c.CurrentSavings = cur.String()
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListClients returns the owner's active roster ordered by name.
func ListClients(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}

		store := NewRosterStore(pgxPool, session.UserID)
		caps, err := store.Capabilities(ctx)
		if err != nil {
			api.LogError("clients capability check failed: %v", err)
			api.RespondWithPayload(w, false, "Müşteri listesi alınamadı.", nil)
			return
		}

		clients, err := scanClientRows(ctx, pgxPool, caps, session.UserID, "")
		if err != nil {
			api.LogError("client list failed: %v", err)
			api.RespondWithPayload(w, false, "Müşteri listesi alınamadı.", nil)
			return
		}
		if clients == nil {
			clients = []clientRow{}
		}
		api.RespondWithPayload(w, true, "", clients)
	}
}

type snapshotRow struct {
	Amount     string    `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ClientDetail returns one client plus their savings snapshot history.
func ClientDetail(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var form clientForm
		if !decodeForm(r, &form) || form.ID == "" {
			api.RespondWithResult(w, false, "Bilgiler doğrulanamadı.")
			return
		}
		session := requireSession(w, form.UserID)
		if session == nil {
			return
		}

		store := NewRosterStore(pgxPool, session.UserID)
		caps, err := store.Capabilities(ctx)
		if err != nil {
			api.LogError("clients capability check failed: %v", err)
			api.RespondWithPayload(w, false, "Müşteri verileri alınamadı.", nil)
			return
		}

		clients, err := scanClientRows(ctx, pgxPool, caps, session.UserID, form.ID)
		if err != nil {
			api.LogError("client detail failed: %v", err)
			api.RespondWithPayload(w, false, "Müşteri verileri alınamadı.", nil)
			return
		}
		if len(clients) == 0 {
			api.RespondWithPayload(w, false, "Müşteri bulunamadı.", nil)
			return
		}

		snapRows, err := pgxPool.Query(ctx, `
			SELECT amount, recorded_at FROM savings_snapshots
			WHERE client_id = $1 ORDER BY recorded_at ASC
		`, form.ID)
		if err != nil {
			api.LogError("snapshot history failed: %v", err)
			api.RespondWithPayload(w, false, "Müşteri verileri alınamadı.", nil)
			return
		}
		defer snapRows.Close()

		snapshots := []snapshotRow{}
		for snapRows.Next() {
			var (
				amount decimal.Decimal
				at     time.Time
			)
			if err := snapRows.Scan(&amount, &at); err != nil {
				api.LogError("snapshot scan failed: %v", err)
				api.RespondWithPayload(w, false, "Müşteri verileri alınamadı.", nil)
				return
			}
			snapshots = append(snapshots, snapshotRow{Amount: amount.String(), RecordedAt: at})
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"client":    clients[0],
			"snapshots": snapshots,
		})
	}
}
