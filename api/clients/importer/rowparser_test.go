package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567", "1234567"},
		{"1.234.567,89", "1234567.89"},
		{"₺2.500,00", "2500"},
		{"2500 TL", "2500"},
		{"-150,25", "-150.25"},
		{"0", "0"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		require.NoError(t, err, "ParseAmount(%q)", tt.raw)
		assert.Equal(t, tt.want, got.String(), "ParseAmount(%q)", tt.raw)
	}
}

func TestParseAmountRejectsNonNumeric(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "TL"} {
		_, err := ParseAmount(raw)
		assert.Error(t, err, "ParseAmount(%q)", raw)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"05.03.1990", "5.3.1990", "05/03/1990", "1990-03-05", "05-03-1990"} {
		got := ParseDate(raw)
		require.NotNil(t, got, "ParseDate(%q)", raw)
		assert.True(t, want.Equal(*got), "ParseDate(%q) = %v", raw, got)
	}
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "yarın", "31.02.2020", "2020-13-01", "05.03.90"} {
		assert.Nil(t, ParseDate(raw), "ParseDate(%q)", raw)
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Ali@Example.COM", "ali@example.com"},
		{" ali @example.com ", "ali@example.com"},
		{"ali@example,com", "ali@example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeEmail(tt.raw), "SanitizeEmail(%q)", tt.raw)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ayse.yilmaz@example.com"))
	assert.True(t, ValidEmail("o'brien+tag@mail.example.co"))
	assert.False(t, ValidEmail("ayse.yilmaz"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("ali@example"))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ";", DetectDelimiter("Ad Soyad;E-posta"))
	assert.Equal(t, ",", DetectDelimiter("Ad Soyad,E-posta"))
	assert.Equal(t, ",", DetectDelimiter("Ad Soyad"))
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "Ali Veli", CleanCell(`"Ali Veli"`))
	assert.Equal(t, "Ali Veli", CleanCell("  Ali Veli  "))
	assert.Equal(t, "", CleanCell(`""`))
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Ad Soyad", "adsoyad"},
		{"E-Posta", "eposta"},
		{"İlk Tasarruf", "ilktasarruf"},
		{"GÜNCEL TASARRUF", "gunceltasarruf"},
		{"doğum_tarihi", "dogumtarihi"},
		{"Poliçe Türü", "policeturu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.raw), "NormalizeHeader(%q)", tt.raw)
	}
}
