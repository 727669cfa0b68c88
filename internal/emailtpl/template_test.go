package emailtpl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"1234.56", "₺1.234,56"},
		{"1234567.8", "₺1.234.567,80"},
		{"0", "₺0,00"},
		{"999", "₺999,00"},
		{"-150.25", "-₺150,25"},
	}
	for _, tt := range tests {
		amount, err := decimal.NewFromString(tt.amount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, FormatCurrency(amount), "FormatCurrency(%s)", tt.amount)
	}
}

func TestGrowthPercent(t *testing.T) {
	tests := []struct {
		first   int64
		current int64
		want    string
	}{
		{1000, 1500, "50.0%"},
		{1000, 1000, "0.0%"},
		{1000, 900, "-10.0%"},
		{0, 500, "—"},
	}
	for _, tt := range tests {
		got := GrowthPercent(decimal.NewFromInt(tt.first), decimal.NewFromInt(tt.current))
		assert.Equal(t, tt.want, got, "GrowthPercent(%d, %d)", tt.first, tt.current)
	}
}

func TestFormatDateTR(t *testing.T) {
	assert.Equal(t, "05.03.1990", FormatDateTR(time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC)))
}

func TestRenderDigestSingleClient(t *testing.T) {
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	digest := RenderDigest(RenderOptions{
		ConsultantName: "Deniz Danışman",
		CurrentDate:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Clients: []DigestClient{{
			Name:           "Ayşe Yılmaz",
			Email:          "ayse@example.com",
			FirstSavings:   decimal.NewFromInt(1000),
			CurrentSavings: decimal.NewFromInt(2500),
			StartDate:      &start,
		}},
	})

	assert.Equal(t, "Sayın Ayşe Yılmaz, emeklilik fon özetiniz", digest.Subject)
	assert.Contains(t, digest.Text, "₺2.500,00")
	assert.Contains(t, digest.Text, "₺1.000,00")
	assert.Contains(t, digest.Text, "150.0%")
	assert.Contains(t, digest.Text, "15.01.2024")
	assert.Contains(t, digest.Text, "01.09.2026")
	assert.Contains(t, digest.Text, "Deniz Danışman")
	assert.NotContains(t, digest.Text, "{{")
	assert.Contains(t, digest.HTML, "<p>")
}

func TestRenderDigestMultipleClientsBuildsList(t *testing.T) {
	digest := RenderDigest(RenderOptions{
		SubjectTemplate: "Özet",
		BodyTemplate:    "Merhaba\n\n{{CLIENT_LIST}}",
		ConsultantName:  "Deniz Danışman",
		CurrentDate:     time.Now(),
		Clients: []DigestClient{
			{Name: "Ayşe Yılmaz", Email: "ayse@example.com", FirstSavings: decimal.NewFromInt(100), CurrentSavings: decimal.NewFromInt(200)},
			{Name: "Ali Veli", Email: "ali@example.com", FirstSavings: decimal.NewFromInt(300), CurrentSavings: decimal.NewFromInt(400)},
		},
	})

	assert.Contains(t, digest.Text, "- Ayşe Yılmaz: güncel tasarruf ₺200,00")
	assert.Contains(t, digest.Text, "- Ali Veli: güncel tasarruf ₺400,00")
	assert.Contains(t, digest.HTML, "<ul>")
	assert.Contains(t, digest.HTML, "<li><strong>Ali Veli</strong>")
}

func TestRenderDigestFallsBackToDefaults(t *testing.T) {
	digest := RenderDigest(RenderOptions{
		ConsultantName: "Deniz Danışman",
		CurrentDate:    time.Now(),
		Clients: []DigestClient{{
			Name:           "Ali Veli",
			Email:          "ali@example.com",
			FirstSavings:   decimal.NewFromInt(100),
			CurrentSavings: decimal.NewFromInt(200),
		}},
	})

	assert.Contains(t, digest.Subject, "Ali Veli")
	assert.Contains(t, digest.Text, "Güncel tasarruf tutarınız")
}

func TestRenderDigestEscapesHTMLInList(t *testing.T) {
	digest := RenderDigest(RenderOptions{
		BodyTemplate:   "{{CLIENT_LIST}}",
		ConsultantName: "Deniz Danışman",
		CurrentDate:    time.Now(),
		Clients: []DigestClient{
			{Name: "<script>x</script>", Email: "a@example.com", FirstSavings: decimal.NewFromInt(1), CurrentSavings: decimal.NewFromInt(2)},
			{Name: "Ali Veli", Email: "ali@example.com", FirstSavings: decimal.NewFromInt(1), CurrentSavings: decimal.NewFromInt(2)},
		},
	})

	assert.NotContains(t, digest.HTML, "<script>")
	assert.Contains(t, digest.HTML, "&lt;script&gt;")
}
