package communications

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPlannerRequest() plannerRequest {
	return plannerRequest{
		UserID:    "user-1",
		ClientIDs: []string{"c1"},
		Reasons:   []string{"birthday"},
		Subject:   "Fon bilgilendirmesi",
		Body:      "<p>" + strings.Repeat("içerik ", 5) + "</p>",
		Channels:  []string{"email"},
		SendNow:   true,
	}
}

func TestValidatePlanner(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*plannerRequest)
		want   string
	}{
		{"valid immediate send", func(r *plannerRequest) {}, ""},
		{"no clients", func(r *plannerRequest) { r.ClientIDs = nil }, "En az bir müşteri seçmelisiniz."},
		{"no reasons", func(r *plannerRequest) { r.Reasons = nil }, "En az bir iletişim sebebi seçmelisiniz."},
		{"short subject", func(r *plannerRequest) { r.Subject = "ab" }, "Konu en az 3 karakter olmalıdır."},
		{"long subject", func(r *plannerRequest) { r.Subject = strings.Repeat("k", 141) }, "Konu en fazla 140 karakter olabilir."},
		{"empty body", func(r *plannerRequest) { r.Body = "" }, "İletişim içeriği boş olamaz."},
		{"no channels", func(r *plannerRequest) { r.Channels = nil }, "En az bir iletişim kanalı seçmelisiniz."},
		{"schedule needs date", func(r *plannerRequest) { r.SendNow = false }, "Lütfen planlanan tarihi seçin."},
		{"schedule needs time", func(r *plannerRequest) {
			r.SendNow = false
			r.ScheduleDate = "2026-09-15"
		}, "Lütfen planlanan saati seçin."},
		{"scheduled and complete", func(r *plannerRequest) {
			r.SendNow = false
			r.ScheduleDate = "2026-09-15"
			r.ScheduleTime = "09:30"
		}, ""},
	}
	for _, tt := range tests {
		req := validPlannerRequest()
		tt.mutate(&req)
		bodyText := strings.Repeat("içerik ", 5)
		if req.Body == "" {
			bodyText = ""
		}
		assert.Equal(t, tt.want, validatePlanner(&req, bodyText), tt.name)
	}
}

func TestValidatePlannerRejectsShortText(t *testing.T) {
	req := validPlannerRequest()
	req.Body = "<p><br /></p>"
	got := validatePlanner(&req, "kısa")
	assert.Equal(t, "İletişim içeriği en az 20 karakter olmalıdır.", got)
}

func TestBuildSummaryBlock(t *testing.T) {
	html := buildSummaryBlock(
		decimal.NewFromInt(1000), decimal.NewFromInt(1250), decimal.NewFromInt(250),
		"+25.00", "data:image/png;base64,xyz")

	assert.Contains(t, html, "Toplam Birikim:</strong> ₺1.250,00")
	assert.Contains(t, html, "Geçen Ay:</strong> ₺1.000,00")
	assert.Contains(t, html, "Değişim:</strong> +25.00%")
	assert.Contains(t, html, "Aylık Katkı:</strong> ₺250,00")
	assert.Contains(t, html, `img src="data:image/png;base64,xyz"`)
}

func TestBuildSummaryBlockWithoutChart(t *testing.T) {
	html := buildSummaryBlock(decimal.Zero, decimal.Zero, decimal.Zero, "+0.00", "")
	assert.NotContains(t, html, "<img")
}

func TestApplyReplacements(t *testing.T) {
	out := applyReplacements("Sayın {{CLIENT_NAME}}, tutar: {{CURRENT_SAVINGS}}", map[string]string{
		"{{CLIENT_NAME}}":     "Ayşe Yılmaz",
		"{{CURRENT_SAVINGS}}": "₺2.500,00",
	})
	assert.Equal(t, "Sayın Ayşe Yılmaz, tutar: ₺2.500,00", out)
}
