package communications

import "strings"

// CommunicationReason is one selectable reason shown in the planner.
type CommunicationReason struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

var CommunicationReasons = []CommunicationReason{
	{
		ID:          "policy-update",
		Label:       "BES Poliçe Bilgilendirme",
		Description: "Poliçe değişikliği, katkı payı artışı veya avantajlı kampanyaları duyurun.",
	},
	{
		ID:          "birthday",
		Label:       "Doğum Günü Kutlaması",
		Description: "Müşterilerin özel günlerinde kutlama mesajı gönderin.",
	},
	{
		ID:          "renewal-reminder",
		Label:       "Katkı Payı Hatırlatma",
		Description: "Ödeme tarihi yaklaşan müşteriler için hatırlatma paylaşın.",
	},
	{
		ID:          "performance",
		Label:       "Fon Performansı Özeti",
		Description: "Son dönem performans değişikliklerini özetleyin.",
	},
}

var reasonLabels = func() map[string]string {
	m := make(map[string]string, len(CommunicationReasons))
	for _, reason := range CommunicationReasons {
		m[reason.ID] = reason.Label
	}
	return m
}()

// FormatReasonLabels joins the labels of the given reason ids, falling back
// to the raw id for unknown entries.
func FormatReasonLabels(ids []string) string {
	if len(ids) == 0 {
		return "Genel iletişim"
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := reasonLabels[id]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, id)
		}
	}
	return strings.Join(labels, ", ")
}

// AiTopic is a market subject the AI draft can be asked to cover.
type AiTopic struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Instruction string `json:"-"`
}

var MarketTopics = []AiTopic{
	{
		ID:          "bist",
		Label:       "BIST 100",
		Description: "Borsa İstanbul endeksinin son 1 aylık performansı",
		Instruction: "Borsa İstanbul (BIST 100) endeksinin son 1 aylık puan ve yüzde değişimini, varsa önemli haberi özetle",
	},
	{
		ID:          "usdtry",
		Label:       "USD/TRY",
		Description: "Dolar/TL kurundaki son 1 aylık değişim",
		Instruction: "USD/TRY kurunun son 1 aylık seviyesini ve yüzde değişimini açıkla",
	},
	{
		ID:          "eurusd",
		Label:       "EUR/USD",
		Description: "Euro/Dolar paritesi",
		Instruction: "EUR/USD paritesinin son 1 aylık seyrini ve temel etkenleri özetle",
	},
	{
		ID:          "gold",
		Label:       "Altın",
		Description: "Ons veya gram altın fiyatı",
		Instruction: "Altın fiyatlarının (ons ve/veya gram) son 1 ayda nasıl değiştiğini belirt",
	},
	{
		ID:          "bitcoin",
		Label:       "Bitcoin",
		Description: "Bitcoin fiyatındaki son 1 aylık değişim",
		Instruction: "Bitcoin fiyatının son 1 aylık performansını ve ana başlıkları özetle",
	},
	{
		ID:          "ethereum",
		Label:       "Ethereum",
		Description: "Ethereum fiyatındaki son 1 aylık değişim",
		Instruction: "Ethereum fiyatının son 1 aydaki hareketini ve öne çıkan haberi paylaş",
	},
}

func topicInstruction(id string) string {
	for _, topic := range MarketTopics {
		if topic.ID == id {
			return topic.Instruction
		}
	}
	return ""
}
