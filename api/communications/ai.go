package communications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"BesCrmSaas/api"
	"BesCrmSaas/api/auth"
	"BesCrmSaas/internal/ai"
	"BesCrmSaas/internal/sanitize"
)

// GenerateTemplateWithAI turns a consultant's prompt plus optional market
// topics into a digest draft via the AI client.
func GenerateTemplateWithAI(client *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string   `json:"user_id"`
			Prompt string   `json:"prompt"`
			Tone   string   `json:"tone"`
			Topics []string `json:"topics"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithResult(w, false, "İstek anlaşılamadı.")
			return
		}
		session := auth.SessionByUserID(req.UserID)
		if session == nil {
			api.RespondWithError(w, http.StatusUnauthorized, "Yetkiniz bulunmuyor.")
			return
		}

		prompt := sanitize.Text(req.Prompt)
		if utf8.RuneCountInString(prompt) < 10 {
			api.RespondWithResult(w, false, "Lütfen e-posta için daha detaylı bir istek yazın.")
			return
		}

		tone := ai.ToneFormal
		if req.Tone == string(ai.ToneFriendly) {
			tone = ai.ToneFriendly
		}

		var instructions []string
		for _, id := range req.Topics {
			if instruction := topicInstruction(sanitize.Text(id)); instruction != "" {
				instructions = append(instructions, "- "+instruction)
			}
		}

		combined := prompt
		if len(instructions) > 0 {
			combined = strings.Join([]string{
				prompt,
				"",
				"Ek olarak aşağıdaki finans başlıkları için son 1 aylık (varsa yüzdesel) değişimleri maddeler halinde aktar:",
				strings.Join(instructions, "\n"),
			}, "\n")
		}

		draft, err := client.GenerateDraft(r.Context(), combined, tone)
		if err != nil {
			if errors.Is(err, ai.ErrMissingAPIKey) {
				api.RespondWithResult(w, false, "Yapay zeka için OPENAI_API_KEY ortam değişkenini tanımlayın.")
				return
			}
			api.LogError("ai draft failed: %v", err)
			api.RespondWithResult(w, false, "Taslak oluşturulamadı.")
			return
		}

		api.RespondWithPayload(w, true, "", map[string]string{
			"message": "Yapay zeka taslağı hazırlandı. Gerekirse düzenleyebilirsiniz.",
			"subject": draft.Subject,
			"body":    draft.Body,
		})
	}
}
