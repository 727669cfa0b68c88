package emailtpl

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"BesCrmSaas/internal/sanitize"
)

// Placeholder describes a token consultants may embed in their templates.
type Placeholder struct {
	Token       string `json:"token"`
	Description string `json:"description"`
}

var Placeholders = []Placeholder{
	{Token: "{{CONSULTANT_NAME}}", Description: "Danışman adı veya varsayılan hitap"},
	{Token: "{{CLIENT_NAME}}", Description: "Müşterinin adı"},
	{Token: "{{CLIENT_EMAIL}}", Description: "Müşterinin e-posta adresi"},
	{Token: "{{CURRENT_SAVINGS}}", Description: "Müşterinin güncel tasarruf tutarı"},
	{Token: "{{FIRST_SAVINGS}}", Description: "Müşterinin ilk kayıtlı tasarruf tutarı"},
	{Token: "{{SAVINGS_GROWTH}}", Description: "Müşterinin tasarruf büyüme yüzdesi"},
	{Token: "{{CLIENT_START_DATE}}", Description: "Müşterinin sisteme katıldığı tarih"},
	{Token: "{{CURRENT_DATE}}", Description: "E-postanın gönderildiği tarih (TR formatında)"},
	{Token: "{{CLIENT_LIST}}", Description: "Birden fazla müşteri seçildiğinde hepsini listeler"},
}

const DefaultSubject = "Sayın {{CLIENT_NAME}}, emeklilik fon özetiniz"

var DefaultBody = strings.Join([]string{
	"Sayın {{CLIENT_NAME}},",
	"",
	"Güncel tasarruf tutarınız: {{CURRENT_SAVINGS}}",
	"İlk kayıtlı tutarınız: {{FIRST_SAVINGS}}",
	"Toplam büyüme: {{SAVINGS_GROWTH}}",
	"Sisteme katıldığınız tarih: {{CLIENT_START_DATE}}",
	"",
	"Güncel tarih: {{CURRENT_DATE}}",
	"",
	"Sorularınız için danışmanınız {{CONSULTANT_NAME}} ile iletişime geçebilirsiniz.",
	"",
	"{{CLIENT_LIST}}",
}, "\n")

// DigestClient is one recipient's savings data fed into a template.
type DigestClient struct {
	Name           string
	Email          string
	FirstSavings   decimal.Decimal
	CurrentSavings decimal.Decimal
	StartDate      *time.Time
}

// RenderOptions drive a single digest render.
type RenderOptions struct {
	SubjectTemplate string
	BodyTemplate    string
	ConsultantName  string
	Clients         []DigestClient
	CurrentDate     time.Time
}

// Digest is the rendered outcome: subject plus text and HTML bodies.
type Digest struct {
	Subject string
	Text    string
	HTML    string
}

// FormatCurrency renders an amount the way the consultants expect it,
// thousands separated with dots and a decimal comma: ₺1.234,56.
func FormatCurrency(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart := parts[0]

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	out := "₺" + grouped.String() + "," + parts[1]
	if negative {
		return "-" + out
	}
	return out
}

// GrowthPercent formats the growth from first to current savings, or an em
// dash when there is no baseline to compare against.
func GrowthPercent(first, current decimal.Decimal) string {
	if first.IsZero() {
		return "—"
	}
	growth := current.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
	return growth.StringFixed(1) + "%"
}

// FormatDateTR renders a date in the Turkish day.month.year convention.
func FormatDateTR(t time.Time) string {
	return t.Format("02.01.2006")
}

const clientListMarker = "__CLIENT_LIST_MARKER__"

// RenderDigest substitutes the placeholder tokens and builds both the plain
// text and HTML variants of the digest mail. The first client fills the
// singular placeholders; additional clients are appended as a list.
func RenderDigest(opts RenderOptions) Digest {
	subjectTemplate := opts.SubjectTemplate
	if subjectTemplate == "" {
		subjectTemplate = DefaultSubject
	}
	bodyTemplate := opts.BodyTemplate
	if bodyTemplate == "" {
		bodyTemplate = DefaultBody
	}

	replacements := map[string]string{
		"{{CONSULTANT_NAME}}":   opts.ConsultantName,
		"{{CURRENT_DATE}}":      FormatDateTR(opts.CurrentDate),
		"{{CLIENT_LIST}}":       "",
		"{{CLIENT_NAME}}":       "",
		"{{CLIENT_EMAIL}}":      "",
		"{{CURRENT_SAVINGS}}":   "",
		"{{FIRST_SAVINGS}}":     "",
		"{{SAVINGS_GROWTH}}":    "",
		"{{CLIENT_START_DATE}}": "",
	}

	if len(opts.Clients) > 0 {
		primary := opts.Clients[0]
		replacements["{{CLIENT_NAME}}"] = primary.Name
		replacements["{{CLIENT_EMAIL}}"] = primary.Email
		replacements["{{CURRENT_SAVINGS}}"] = FormatCurrency(primary.CurrentSavings)
		replacements["{{FIRST_SAVINGS}}"] = FormatCurrency(primary.FirstSavings)
		replacements["{{SAVINGS_GROWTH}}"] = GrowthPercent(primary.FirstSavings, primary.CurrentSavings)
		if primary.StartDate != nil {
			replacements["{{CLIENT_START_DATE}}"] = FormatDateTR(*primary.StartDate)
		}
	}

	var listText []string
	var listItems []string
	if len(opts.Clients) > 1 {
		for _, client := range opts.Clients {
			current := FormatCurrency(client.CurrentSavings)
			initial := FormatCurrency(client.FirstSavings)
			start := "-"
			if client.StartDate != nil {
				start = FormatDateTR(*client.StartDate)
			}
			listText = append(listText,
				"- "+client.Name+": güncel tasarruf "+current+" (ilk kayıt "+initial+", başlangıç "+start+")")
			listItems = append(listItems,
				"<li><strong>"+sanitize.EscapeHTML(client.Name)+"</strong> — güncel tasarruf "+
					sanitize.EscapeHTML(current)+" (ilk kayıt "+sanitize.EscapeHTML(initial)+
					", başlangıç "+sanitize.EscapeHTML(start)+")</li>")
		}
	}
	if len(listText) > 0 {
		replacements["{{CLIENT_LIST}}"] = strings.Join(listText, "\n")
	}
	clientListHTML := ""
	if len(listItems) > 0 {
		clientListHTML = "<ul>" + strings.Join(listItems, "") + "</ul>"
	}

	return Digest{
		Subject: applyTemplate(subjectTemplate, replacements),
		Text:    applyTemplate(bodyTemplate, replacements),
		HTML:    buildHTML(bodyTemplate, replacements, clientListHTML),
	}
}

func applyTemplate(template string, replacements map[string]string) string {
	out := template
	for token, value := range replacements {
		out = strings.ReplaceAll(out, token, value)
	}
	return out
}

// buildHTML converts the substituted plain-text template into paragraphs,
// splicing the client list in wherever its token appeared.
func buildHTML(template string, replacements map[string]string, clientListHTML string) string {
	withMarker := strings.ReplaceAll(template, "{{CLIENT_LIST}}", clientListMarker)
	replaced := applyTemplate(withMarker, replacements)
	lines := strings.Split(replaced, "\n")

	var htmlParts []string
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		escaped := make([]string, len(paragraph))
		for i, line := range paragraph {
			escaped[i] = sanitize.EscapeHTML(line)
		}
		htmlParts = append(htmlParts, "<p>"+strings.Join(escaped, "<br />")+"</p>")
		paragraph = paragraph[:0]
	}

	for _, line := range lines {
		if strings.Contains(line, clientListMarker) {
			segments := strings.Split(line, clientListMarker)
			for i, segment := range segments {
				if trimmed := strings.TrimSpace(segment); trimmed != "" {
					paragraph = append(paragraph, trimmed)
				}
				if i < len(segments)-1 {
					flush()
					if clientListHTML != "" {
						htmlParts = append(htmlParts, clientListHTML)
					}
				}
			}
		} else if strings.TrimSpace(line) == "" {
			flush()
		} else {
			paragraph = append(paragraph, strings.TrimSpace(line))
		}
	}
	flush()

	if !strings.Contains(replaced, clientListMarker) && clientListHTML != "" {
		htmlParts = append(htmlParts, clientListHTML)
	}

	return strings.Join(htmlParts, "\n")
}
