package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"BesCrmSaas/api"
	"BesCrmSaas/api/clients/importer"
)

// ImportSummary is the outcome of one reconciliation pass. The import counts
// as successful only when no row failed at the storage layer.
type ImportSummary struct {
	Updated  int
	Inserted int
	Failures []string // emails of rows whose write failed
}

func (s ImportSummary) Success() bool {
	return len(s.Failures) == 0
}

// Message builds the Turkish summary returned to the consultant.
func (s ImportSummary) Message() string {
	var parts []string
	if s.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d müşteri güncellendi", s.Updated))
	}
	if s.Inserted > 0 {
		parts = append(parts, fmt.Sprintf("%d yeni müşteri eklendi", s.Inserted))
	}
	if len(parts) == 0 {
		parts = append(parts, "Herhangi bir kayıt güncellenmedi")
	}
	message := strings.Join(parts, ", ") + "."
	if len(s.Failures) > 0 {
		message += fmt.Sprintf(" (hatalı: %s)", strings.Join(s.Failures, ", "))
	}
	return message
}

// Reconcile merges validated rows into the owner's roster. Rows match stored
// clients by case-insensitive email; each row's write is attempted
// independently, so a storage failure on one row is recorded and the rest of
// the file still goes through. A savings snapshot is appended only when the
// imported amount actually differs from the stored one, which makes
// re-importing an unchanged file a no-op for the history.
func Reconcile(ctx context.Context, store RosterStore, caps SchemaCapabilities, rows []importer.Row) (ImportSummary, error) {
	var summary ImportSummary

	seen := make(map[string]bool)
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		key := strings.ToLower(row.Email)
		if !seen[key] {
			seen[key] = true
			emails = append(emails, key)
		}
	}

	existing, err := store.FindByEmails(ctx, emails)
	if err != nil {
		return summary, fmt.Errorf("mevcut müşteriler alınamadı: %w", err)
	}

	for _, row := range rows {
		key := strings.ToLower(row.Email)

		if stored, ok := existing[key]; ok {
			if reconcileUpdate(ctx, store, caps, row, stored) {
				summary.Updated++
			} else {
				summary.Failures = append(summary.Failures, row.Email)
			}
			continue
		}

		newID, ok := reconcileInsert(ctx, store, caps, row)
		if !ok {
			summary.Failures = append(summary.Failures, row.Email)
			continue
		}
		summary.Inserted++

		// Keep the merge map current so a duplicated email later in the same
		// file updates the row we just created instead of inserting twice.
		existing[key] = StoredClient{ID: newID, Name: row.Name, Email: row.Email, CurrentSavings: row.CurrentSavings}
	}

	return summary, nil
}

func reconcileUpdate(ctx context.Context, store RosterStore, caps SchemaCapabilities, row importer.Row, stored StoredClient) bool {
	upd := ImportUpdate{Phone: optionalString(row.Phone)}

	if !namesEqual(stored.Name, row.Name) {
		name := row.Name
		upd.Name = &name
	}
	if caps.PolicyColumns {
		kind := string(row.Kind)
		upd.ClientType = &kind
	}

	if row.Kind == importer.KindSavings {
		first := row.FirstSavings
		upd.Savings = &SavingsUpdate{
			FirstSavings:   &first,
			CurrentSavings: row.CurrentSavings,
			BirthDate:      row.BirthDate,
		}
	} else if caps.PolicyColumns {
		upd.Policy = &PolicyUpdate{
			PolicyType:  optionalString(row.PolicyType),
			PolicyStart: row.PolicyStart,
			PolicyEnd:   row.PolicyEnd,
		}
	}

	if err := store.UpdateFromImport(ctx, stored.ID, upd); err != nil {
		api.LogError("import update failed for %s: %v", row.Email, err)
		return false
	}
	if stored.Deleted {
		api.LogInfo("revived soft-deleted client %s", row.Email)
	}

	if row.Kind == importer.KindSavings && !stored.CurrentSavings.Equal(row.CurrentSavings) {
		if err := store.AppendSnapshot(ctx, stored.ID, row.CurrentSavings); err != nil {
			api.LogError("snapshot append failed for %s: %v", row.Email, err)
			return false
		}
	}
	return true
}

func reconcileInsert(ctx context.Context, store RosterStore, caps SchemaCapabilities, row importer.Row) (string, bool) {
	ins := ImportInsert{
		Name:  row.Name,
		Email: row.Email,
		Phone: optionalString(row.Phone),
	}
	if caps.PolicyColumns {
		kind := string(row.Kind)
		ins.ClientType = &kind
	}

	if row.Kind == importer.KindSavings {
		ins.BirthDate = row.BirthDate
		ins.FirstSavings = row.FirstSavings
		ins.CurrentSavings = row.CurrentSavings
	} else if caps.PolicyColumns {
		ins.PolicyType = optionalString(row.PolicyType)
		ins.PolicyStart = row.PolicyStart
		ins.PolicyEnd = row.PolicyEnd
	}

	id, err := store.InsertFromImport(ctx, ins)
	if err != nil {
		api.LogError("import insert failed for %s: %v", row.Email, err)
		return "", false
	}

	// A fresh client starts from zero, so a snapshot is only due when the
	// imported amount is non-zero.
	if row.Kind == importer.KindSavings && !row.CurrentSavings.IsZero() {
		if err := store.AppendSnapshot(ctx, id, row.CurrentSavings); err != nil {
			api.LogError("snapshot append failed for %s: %v", row.Email, err)
			return "", false
		}
	}
	return id, true
}

func namesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func optionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

const birthdaySubject = "Doğum Gününüz Kutlu Olsun! 🎉"

var birthdayBody = strings.Join([]string{
	"Sayın {{CLIENT_NAME}},",
	"",
	"Doğum gününüzü kutlar, sağlık, mutluluk ve başarı dolu bir yaş dileriz!",
	"",
	"Emeklilik tasarruflarınızda da bu özel günde size güzel haberler verebilmek istiyoruz:",
	"- Güncel tasarrufunuz: {{CURRENT_SAVINGS}}",
	"- İlk kayıt tutarınız: {{FIRST_SAVINGS}}",
	"- Büyüme oranınız: {{SAVINGS_GROWTH}}",
	"",
	"Özel gününüzü kutlar, nice mutlu yıllar dileriz!",
	"",
	"Saygılarımızla,",
	"{{CONSULTANT_NAME}}",
}, "\n")

// TriggerBirthdayCampaigns scans the validated savings rows for clients whose
// birthday is today and drafts a single campaign targeting all of them. This
// is best effort: any failure is logged and swallowed, never surfacing into
// the import result.
func TriggerBirthdayCampaigns(ctx context.Context, sink CampaignSink, rows []importer.Row, now time.Time) {
	var recipients []CampaignRecipient
	for _, row := range rows {
		if row.Kind != importer.KindSavings || row.BirthDate == nil {
			continue
		}
		if row.BirthDate.Month() == now.Month() && row.BirthDate.Day() == now.Day() {
			recipients = append(recipients, CampaignRecipient{ClientName: row.Name, ClientEmail: row.Email})
		}
	}
	if len(recipients) == 0 {
		return
	}

	bodyHTML := strings.ReplaceAll(birthdayBody, "\n", "<br>")
	campaignID, err := sink.CreateCampaign(ctx, birthdaySubject, bodyHTML, birthdayBody, now, "DRAFT")
	if err != nil {
		api.LogError("birthday campaign creation failed: %v", err)
		return
	}
	if err := sink.AddRecipients(ctx, campaignID, recipients); err != nil {
		api.LogError("birthday recipients creation failed: %v", err)
	}
}
