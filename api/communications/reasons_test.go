package communications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatReasonLabels(t *testing.T) {
	tests := []struct {
		ids  []string
		want string
	}{
		{nil, "Genel iletişim"},
		{[]string{}, "Genel iletişim"},
		{[]string{"birthday"}, "Doğum Günü Kutlaması"},
		{[]string{"policy-update", "performance"}, "BES Poliçe Bilgilendirme, Fon Performansı Özeti"},
		{[]string{"unknown-id"}, "unknown-id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatReasonLabels(tt.ids), "FormatReasonLabels(%v)", tt.ids)
	}
}

func TestTopicInstruction(t *testing.T) {
	assert.Contains(t, topicInstruction("bist"), "BIST 100")
	assert.Equal(t, "", topicInstruction("no-such-topic"))
}

func TestValidateTemplate(t *testing.T) {
	longBody := strings.Repeat("a", 20)
	tests := []struct {
		subject string
		body    string
		want    string
	}{
		{"ab", longBody, "Konu en az 3 karakter olmalıdır."},
		{strings.Repeat("k", 141), longBody, "Konu en fazla 140 karakter olabilir."},
		{"Konu", "kısa", "E-posta gövdesi en az 20 karakter olmalıdır."},
		{"Konu", strings.Repeat("g", 8001), "E-posta gövdesi en fazla 8000 karakter olabilir."},
		{"Konu", longBody, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validateTemplate(tt.subject, tt.body))
	}
}
