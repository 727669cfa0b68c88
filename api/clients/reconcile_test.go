package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BesCrmSaas/api/clients/importer"
)

type fakeRosterStore struct {
	existing        map[string]StoredClient
	inserts         []ImportInsert
	updates         map[string][]ImportUpdate
	snapshots       map[string][]decimal.Decimal
	failInsertEmail string
	nextID          int
}

func newFakeRosterStore() *fakeRosterStore {
	return &fakeRosterStore{
		existing:  make(map[string]StoredClient),
		updates:   make(map[string][]ImportUpdate),
		snapshots: make(map[string][]decimal.Decimal),
	}
}

func (f *fakeRosterStore) Capabilities(ctx context.Context) (SchemaCapabilities, error) {
	return SchemaCapabilities{BirthDate: true, PolicyColumns: true}, nil
}

func (f *fakeRosterStore) FindByEmails(ctx context.Context, emails []string) (map[string]StoredClient, error) {
	found := make(map[string]StoredClient)
	for _, email := range emails {
		if client, ok := f.existing[email]; ok {
			found[email] = client
		}
	}
	return found, nil
}

func (f *fakeRosterStore) InsertFromImport(ctx context.Context, ins ImportInsert) (string, error) {
	if f.failInsertEmail != "" && ins.Email == f.failInsertEmail {
		return "", errors.New("insert refused")
	}
	f.nextID++
	f.inserts = append(f.inserts, ins)
	return fmt.Sprintf("client-%d", f.nextID), nil
}

func (f *fakeRosterStore) UpdateFromImport(ctx context.Context, id string, upd ImportUpdate) error {
	f.updates[id] = append(f.updates[id], upd)
	return nil
}

func (f *fakeRosterStore) AppendSnapshot(ctx context.Context, clientID string, amount decimal.Decimal) error {
	f.snapshots[clientID] = append(f.snapshots[clientID], amount)
	return nil
}

func (f *fakeRosterStore) AppendUploadLog(ctx context.Context, filename string, rowCount int) error {
	return nil
}

type fakeCampaignSink struct {
	subjects   []string
	recipients [][]CampaignRecipient
}

func (f *fakeCampaignSink) CreateCampaign(ctx context.Context, subject, bodyHTML, bodyText string, scheduledAt time.Time, status string) (string, error) {
	f.subjects = append(f.subjects, subject)
	return fmt.Sprintf("campaign-%d", len(f.subjects)), nil
}

func (f *fakeCampaignSink) AddRecipients(ctx context.Context, campaignID string, recipients []CampaignRecipient) error {
	f.recipients = append(f.recipients, recipients)
	return nil
}

func savingsRow(name, email string, first, current int64) importer.Row {
	return importer.Row{
		Kind:           importer.KindSavings,
		Name:           name,
		Email:          email,
		FirstSavings:   decimal.NewFromInt(first),
		CurrentSavings: decimal.NewFromInt(current),
	}
}

func TestReconcileInsertsNewClients(t *testing.T) {
	store := newFakeRosterStore()
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ayşe Yılmaz", "ayse@example.com", 1000, 2500),
		savingsRow("Mehmet Kaya", "mehmet@example.com", 0, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.True(t, summary.Success())
	require.Len(t, store.inserts, 2)

	// Only the non-zero balance gets an opening snapshot.
	assert.Len(t, store.snapshots["client-1"], 1)
	assert.Empty(t, store.snapshots["client-2"])
}

func TestReconcileUpdatesExistingWithoutSnapshotWhenUnchanged(t *testing.T) {
	store := newFakeRosterStore()
	store.existing["ayse@example.com"] = StoredClient{
		ID: "c1", Name: "Ayşe Yılmaz", Email: "ayse@example.com",
		CurrentSavings: decimal.NewFromInt(2500),
	}
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ayşe Yılmaz", "ayse@example.com", 1000, 2500),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Len(t, store.updates["c1"], 1)
	assert.Empty(t, store.snapshots["c1"], "re-importing an unchanged amount must not grow the history")
}

func TestReconcileSnapshotsChangedSavings(t *testing.T) {
	store := newFakeRosterStore()
	store.existing["ayse@example.com"] = StoredClient{
		ID: "c1", Name: "Ayşe Yılmaz", Email: "ayse@example.com",
		CurrentSavings: decimal.NewFromInt(2500),
	}
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ayşe Yılmaz", "ayse@example.com", 1000, 3000),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	require.Len(t, store.snapshots["c1"], 1)
	assert.Equal(t, "3000", store.snapshots["c1"][0].String())
}

func TestReconcileRevivesSoftDeletedClient(t *testing.T) {
	store := newFakeRosterStore()
	store.existing["ayse@example.com"] = StoredClient{
		ID: "c1", Name: "Ayşe Yılmaz", Email: "ayse@example.com",
		CurrentSavings: decimal.NewFromInt(2500),
		Deleted:        true,
	}
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ayşe Yılmaz", "ayse@example.com", 1000, 2500),
	})
	require.NoError(t, err)

	// A deleted match is an update that clears the marker, never a second row.
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Inserted)
	assert.Empty(t, store.inserts)
	assert.Len(t, store.updates["c1"], 1)
	assert.True(t, summary.Success())
}

func TestReconcileDuplicateEmailInFileUpdatesFirstInsert(t *testing.T) {
	store := newFakeRosterStore()
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ali Veli", "ali@example.com", 100, 200),
		savingsRow("Ali Veli", "Ali@Example.com", 100, 300),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Updated)
	assert.Len(t, store.inserts, 1)
	assert.Len(t, store.updates["client-1"], 1)
}

func TestReconcileRecordsRowFailuresAndContinues(t *testing.T) {
	store := newFakeRosterStore()
	store.failInsertEmail = "ali@example.com"
	caps := SchemaCapabilities{BirthDate: true, PolicyColumns: true}

	summary, err := Reconcile(context.Background(), store, caps, []importer.Row{
		savingsRow("Ali Veli", "ali@example.com", 100, 200),
		savingsRow("Ayşe Yılmaz", "ayse@example.com", 100, 200),
	})
	require.NoError(t, err)

	assert.False(t, summary.Success())
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, []string{"ali@example.com"}, summary.Failures)
	assert.Contains(t, summary.Message(), "hatalı: ali@example.com")
}

func TestImportSummaryMessage(t *testing.T) {
	tests := []struct {
		summary ImportSummary
		want    string
	}{
		{ImportSummary{Updated: 2, Inserted: 3}, "2 müşteri güncellendi, 3 yeni müşteri eklendi."},
		{ImportSummary{Inserted: 1}, "1 yeni müşteri eklendi."},
		{ImportSummary{}, "Herhangi bir kayıt güncellenmedi."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.summary.Message())
	}
}

func TestTriggerBirthdayCampaigns(t *testing.T) {
	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	birthday := time.Date(1990, time.May, 10, 0, 0, 0, 0, time.UTC)
	otherDay := time.Date(1990, time.June, 1, 0, 0, 0, 0, time.UTC)

	withBirthday := savingsRow("Ayşe Yılmaz", "ayse@example.com", 100, 200)
	withBirthday.BirthDate = &birthday
	withoutBirthday := savingsRow("Ali Veli", "ali@example.com", 100, 200)
	withoutBirthday.BirthDate = &otherDay

	sink := &fakeCampaignSink{}
	TriggerBirthdayCampaigns(context.Background(), sink, []importer.Row{withBirthday, withoutBirthday}, now)

	require.Len(t, sink.subjects, 1)
	assert.True(t, strings.Contains(sink.subjects[0], "Doğum Gününüz"))
	require.Len(t, sink.recipients, 1)
	require.Len(t, sink.recipients[0], 1)
	assert.Equal(t, "ayse@example.com", sink.recipients[0][0].ClientEmail)
}

func TestTriggerBirthdayCampaignsNoMatches(t *testing.T) {
	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.UTC)
	row := savingsRow("Ali Veli", "ali@example.com", 100, 200)

	sink := &fakeCampaignSink{}
	TriggerBirthdayCampaigns(context.Background(), sink, []importer.Row{row}, now)

	assert.Empty(t, sink.subjects)
}
