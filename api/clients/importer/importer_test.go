package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSavingsFile(t *testing.T) {
	content := strings.Join([]string{
		"Ad Soyad;E-posta;Telefon;Doğum Tarihi;İlk Tasarruf;Güncel Tasarruf",
		"Ayşe Yılmaz;Ayse@Example.com;0555 111 22 33;05.03.1990;1.000,00;2.500,50",
		"Mehmet Kaya;mehmet@example.com;;;0;0",
	}, "\n")

	rows, err := Parse(KindSavings, content)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, KindSavings, first.Kind)
	assert.Equal(t, "Ayşe Yılmaz", first.Name)
	assert.Equal(t, "ayse@example.com", first.Email)
	assert.Equal(t, "0555 111 22 33", first.Phone)
	require.NotNil(t, first.BirthDate)
	assert.Equal(t, "1990-03-05", first.BirthDate.Format("2006-01-02"))
	assert.Equal(t, "1000", first.FirstSavings.String())
	assert.Equal(t, "2500.5", first.CurrentSavings.String())

	second := rows[1]
	assert.Nil(t, second.BirthDate)
	assert.True(t, second.FirstSavings.IsZero())
}

func TestParseCommaDelimited(t *testing.T) {
	content := strings.Join([]string{
		"isim,eposta,ilk tasarruf,guncel tasarruf",
		"Ali Veli,ali@example.com,100,200",
	}, "\n")

	rows, err := Parse(KindSavings, content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ali Veli", rows[0].Name)
}

func TestParsePolicyFile(t *testing.T) {
	content := strings.Join([]string{
		"Kişi;E-posta;Poliçe Türü;Başlangıç Tarihi;Bitiş Tarihi",
		"Fatma Demir;fatma@example.com;Kasko;01.01.2024;01.01.2025",
	}, "\n")

	rows, err := Parse(KindPolicy, content)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, KindPolicy, row.Kind)
	assert.Equal(t, "Kasko", row.PolicyType)
	require.NotNil(t, row.PolicyStart)
	require.NotNil(t, row.PolicyEnd)
	assert.Equal(t, "2024-01-01", row.PolicyStart.Format("2006-01-02"))
}

func TestParseMissingRequiredHeader(t *testing.T) {
	content := strings.Join([]string{
		"Ad Soyad;Telefon",
		"Ali Veli;0555",
	}, "\n")

	_, err := Parse(KindSavings, content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Başlıklar eksik veya tanınmadı")
	assert.Contains(t, err.Error(), "E-posta")
}

func TestParseHeaderOnly(t *testing.T) {
	_, err := Parse(KindSavings, "Ad Soyad;E-posta;İlk Tasarruf;Güncel Tasarruf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "en az bir kayıt")
}

func TestParseNoUsableRows(t *testing.T) {
	content := strings.Join([]string{
		"Ad Soyad;E-posta;İlk Tasarruf;Güncel Tasarruf",
		";;100;200",
	}, "\n")

	_, err := Parse(KindSavings, content)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParseFailsFastWithLineNumber(t *testing.T) {
	content := strings.Join([]string{
		"Ad Soyad;E-posta;İlk Tasarruf;Güncel Tasarruf",
		"Ali Veli;ali@example.com;100;200",
		"Ayşe Yılmaz;ayse@example.com;abc;200",
	}, "\n")

	_, err := Parse(KindSavings, content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Satır 3:")
	assert.Contains(t, err.Error(), "İlk tasarruf tutarı geçersiz")
}

func TestParseSkipsEmbeddedHeaderRow(t *testing.T) {
	content := strings.Join([]string{
		"Ad Soyad;E-posta;İlk Tasarruf;Güncel Tasarruf",
		"Ali Veli;ali@example.com;100;200",
		"Ad Soyad;E-posta;İlk Tasarruf;Güncel Tasarruf",
		"Ayşe Yılmaz;ayse@example.com;300;400",
	}, "\n")

	rows, err := Parse(KindSavings, content)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ali Veli", rows[0].Name)
	assert.Equal(t, "Ayşe Yılmaz", rows[1].Name)
}

func TestParseRecords(t *testing.T) {
	records := [][]string{
		{"Ad Soyad", "E-posta", "İlk Tasarruf", "Güncel Tasarruf"},
		{"Ali Veli", "ali@example.com", "1.500,00", "1.750,00"},
	}

	rows, err := ParseRecords(KindSavings, records)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1500", rows[0].FirstSavings.String())
	assert.Equal(t, "1750", rows[0].CurrentSavings.String())
}

func TestParseRecordsNeedsData(t *testing.T) {
	_, err := ParseRecords(KindSavings, [][]string{{"Ad Soyad", "E-posta"}})
	assert.Error(t, err)
}
