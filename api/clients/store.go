package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SchemaCapabilities records which optional client columns the database
// actually carries. It is computed once per request from the information
// schema and threaded through every downstream step, so feature probing never
// happens twice and never relies on error-message text.
type SchemaCapabilities struct {
	BirthDate     bool
	PolicyColumns bool
}

// StoredClient is the slice of a roster row the reconciler needs to decide
// between insert and update.
type StoredClient struct {
	ID             string
	Name           string
	Email          string
	CurrentSavings decimal.Decimal
	Deleted        bool
}

// SavingsUpdate carries the savings-track fields of an import update.
type SavingsUpdate struct {
	FirstSavings   *decimal.Decimal
	CurrentSavings decimal.Decimal
	BirthDate      *time.Time // nil clears the stored value
}

// PolicyUpdate carries the policy-track fields of an import update.
type PolicyUpdate struct {
	PolicyType  *string
	PolicyStart *time.Time
	PolicyEnd   *time.Time
}

// ImportUpdate is the merge decision for one matched roster row. The
// soft-delete marker is always cleared: re-importing a deleted client revives
// them.
type ImportUpdate struct {
	Name       *string // set only when the imported name differs
	Phone      *string
	ClientType *string
	Savings    *SavingsUpdate
	Policy     *PolicyUpdate
}

// ImportInsert is a brand-new roster row.
type ImportInsert struct {
	Name           string
	Email          string
	Phone          *string
	ClientType     *string
	BirthDate      *time.Time
	FirstSavings   decimal.Decimal
	CurrentSavings decimal.Decimal
	PolicyType     *string
	PolicyStart    *time.Time
	PolicyEnd      *time.Time
}

// RosterStore is the owner-scoped persistence boundary of the import
// pipeline. Implementations must apply the owner predicate to every query so
// a caller cannot reach another consultant's roster.
type RosterStore interface {
	Capabilities(ctx context.Context) (SchemaCapabilities, error)
	FindByEmails(ctx context.Context, emails []string) (map[string]StoredClient, error)
	InsertFromImport(ctx context.Context, ins ImportInsert) (string, error)
	UpdateFromImport(ctx context.Context, id string, upd ImportUpdate) error
	AppendSnapshot(ctx context.Context, clientID string, amount decimal.Decimal) error
	AppendUploadLog(ctx context.Context, filename string, rowCount int) error
}

// CampaignRecipient is one target of a generated campaign.
type CampaignRecipient struct {
	ClientName  string
	ClientEmail string
}

// CampaignSink receives the campaign side effects of an import.
type CampaignSink interface {
	CreateCampaign(ctx context.Context, subject, bodyHTML, bodyText string, scheduledAt time.Time, status string) (string, error)
	AddRecipients(ctx context.Context, campaignID string, recipients []CampaignRecipient) error
}

type pgxRosterStore struct {
	pool    *pgxpool.Pool
	ownerID string
}

// NewRosterStore binds a store to one consultant's roster.
func NewRosterStore(pool *pgxpool.Pool, ownerID string) RosterStore {
	return &pgxRosterStore{pool: pool, ownerID: ownerID}
}

var optionalClientColumns = []string{"birth_date", "client_type", "policy_type", "policy_start_date", "policy_end_date"}

func (s *pgxRosterStore) Capabilities(ctx context.Context) (SchemaCapabilities, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_name = 'clients' AND column_name = ANY($1)
	`, optionalClientColumns)
	if err != nil {
		return SchemaCapabilities{}, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return SchemaCapabilities{}, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return SchemaCapabilities{}, err
	}

	return SchemaCapabilities{
		BirthDate: present["birth_date"],
		PolicyColumns: present["client_type"] && present["policy_type"] &&
			present["policy_start_date"] && present["policy_end_date"],
	}, nil
}

func (s *pgxRosterStore) FindByEmails(ctx context.Context, emails []string) (map[string]StoredClient, error) {
	existing := make(map[string]StoredClient)
	if len(emails) == 0 {
		return existing, nil
	}

	// Soft-deleted rows are included on purpose: importing a deleted client's
	// email revives the record instead of creating a duplicate.
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, name, COALESCE(current_savings, 0), deleted_at IS NOT NULL
		FROM clients
		WHERE owner_id = $1 AND lower(email) = ANY($2)
	`, s.ownerID, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var client StoredClient
		if err := rows.Scan(&client.ID, &client.Email, &client.Name, &client.CurrentSavings, &client.Deleted); err != nil {
			return nil, err
		}
		existing[strings.ToLower(client.Email)] = client
	}
	return existing, rows.Err()
}

func (s *pgxRosterStore) InsertFromImport(ctx context.Context, ins ImportInsert) (string, error) {
	columns := []string{"owner_id", "name", "email", "phone", "first_savings", "current_savings"}
	values := []interface{}{s.ownerID, ins.Name, ins.Email, ins.Phone, ins.FirstSavings, ins.CurrentSavings}

	if ins.ClientType != nil {
		columns = append(columns, "client_type")
		values = append(values, *ins.ClientType)
	}
	if ins.BirthDate != nil {
		columns = append(columns, "birth_date")
		values = append(values, *ins.BirthDate)
	}
	if ins.PolicyType != nil {
		columns = append(columns, "policy_type")
		values = append(values, *ins.PolicyType)
	}
	if ins.PolicyStart != nil {
		columns = append(columns, "policy_start_date")
		values = append(values, *ins.PolicyStart)
	}
	if ins.PolicyEnd != nil {
		columns = append(columns, "policy_end_date")
		values = append(values, *ins.PolicyEnd)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO clients (%s) VALUES (%s) RETURNING id",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	var id string
	if err := s.pool.QueryRow(ctx, query, values...).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *pgxRosterStore) UpdateFromImport(ctx context.Context, id string, upd ImportUpdate) error {
	sets := []string{"phone = $1", "deleted_at = NULL"}
	values := []interface{}{upd.Phone}
	next := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		values = append(values, value)
		next++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.ClientType != nil {
		add("client_type", *upd.ClientType)
	}
	if upd.Savings != nil {
		add("current_savings", upd.Savings.CurrentSavings)
		if upd.Savings.FirstSavings != nil {
			add("first_savings", *upd.Savings.FirstSavings)
		}
		add("birth_date", upd.Savings.BirthDate)
	}
	if upd.Policy != nil {
		add("policy_type", upd.Policy.PolicyType)
		add("policy_start_date", upd.Policy.PolicyStart)
		add("policy_end_date", upd.Policy.PolicyEnd)
	}

	query := fmt.Sprintf(
		"UPDATE clients SET %s WHERE id = $%d AND owner_id = $%d",
		strings.Join(sets, ", "), next, next+1,
	)
	values = append(values, id, s.ownerID)

	_, err := s.pool.Exec(ctx, query, values...)
	return err
}

func (s *pgxRosterStore) AppendSnapshot(ctx context.Context, clientID string, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO savings_snapshots (client_id, amount) VALUES ($1, $2)`,
		clientID, amount)
	return err
}

func (s *pgxRosterStore) AppendUploadLog(ctx context.Context, filename string, rowCount int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO uploads (owner_id, filename, total_records) VALUES ($1, $2, $3)`,
		s.ownerID, filename, rowCount)
	return err
}

type pgxCampaignSink struct {
	pool    *pgxpool.Pool
	ownerID string
}

// NewCampaignSink binds campaign creation to one consultant.
func NewCampaignSink(pool *pgxpool.Pool, ownerID string) CampaignSink {
	return &pgxCampaignSink{pool: pool, ownerID: ownerID}
}

func (s *pgxCampaignSink) CreateCampaign(ctx context.Context, subject, bodyHTML, bodyText string, scheduledAt time.Time, status string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO communication_campaigns (owner_id, subject, body_html, body_text, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
	`, s.ownerID, subject, bodyHTML, bodyText, scheduledAt, status).Scan(&id)
	return id, err
}

func (s *pgxCampaignSink) AddRecipients(ctx context.Context, campaignID string, recipients []CampaignRecipient) error {
	for _, recipient := range recipients {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO communication_recipients (campaign_id, client_name, client_email)
			VALUES ($1, $2, $3)
		`, campaignID, recipient.ClientName, recipient.ClientEmail)
		if err != nil {
			return err
		}
	}
	return nil
}
