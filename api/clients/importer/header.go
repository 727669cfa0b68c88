package importer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind selects which header synonym table and row schema apply to a file.
type Kind string

const (
	KindSavings Kind = "BES" // bireysel emeklilik, savings tracking
	KindPolicy  Kind = "ES"  // elementer sigorta, policy tracking
)

// Field is a canonical column of an import file.
type Field string

const (
	FieldName           Field = "name"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldBirthDate      Field = "birthDate"
	FieldFirstSavings   Field = "firstSavings"
	FieldCurrentSavings Field = "currentSavings"
	FieldPolicyType     Field = "policyType"
	FieldPolicyStart    Field = "policyStartDate"
	FieldPolicyEnd      Field = "policyEndDate"
	fieldIgnore         Field = "ignore"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds a human-written column header into the comparison
// form used by the synonym tables: lowercased, diacritics removed, Turkish
// dotless i unified, separators dropped.
func NormalizeHeader(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "ı", "i")
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var savingsHeaderSynonyms = map[string]Field{
	"name":       FieldName,
	"isim":       FieldName,
	"ad":         FieldName,
	"adsoyad":    FieldName,
	"adivesoyadi": FieldName,
	"soyisim":    FieldName,

	"email":       FieldEmail,
	"mail":        FieldEmail,
	"eposta":      FieldEmail,
	"epostaadres": FieldEmail,

	"telefon": FieldPhone,
	"phone":   FieldPhone,
	"tel":     FieldPhone,
	"gsm":     FieldPhone,

	"dogumtarihi": FieldBirthDate,
	"dogumgunu":   FieldBirthDate,
	"birthdate":   FieldBirthDate,
	"birthday":    FieldBirthDate,
	"tarih":       FieldBirthDate,

	"firstsavings":      FieldFirstSavings,
	"ilktasarruf":       FieldFirstSavings,
	"ilktasarruftutari": FieldFirstSavings,
	"ilkbirikim":        FieldFirstSavings,

	"currentsavings":        FieldCurrentSavings,
	"gunceltasarruf":        FieldCurrentSavings,
	"gunceltasarruftutari":  FieldCurrentSavings,
	"mevcuttasarruf":        FieldCurrentSavings,
	"mevcutsaving":          FieldCurrentSavings,

	"aktarimtarihi":   fieldIgnore,
	"aktarim":         fieldIgnore,
	"aktarimtar":      fieldIgnore,
	"aktarimtarih":    fieldIgnore,
	"aktarimtarihii":  fieldIgnore,
	"aylikodeme":      fieldIgnore,
	"aylikodemesi":    fieldIgnore,
	"aylikodemetutari": fieldIgnore,
	"odemetutari":     fieldIgnore,
	"tutar":           fieldIgnore,
}

var policyHeaderSynonyms = map[string]Field{
	"name":        FieldName,
	"isim":        FieldName,
	"kisi":        FieldName,
	"musteri":     FieldName,
	"adsoyad":     FieldName,
	"adivesoyadi": FieldName,

	"email":       FieldEmail,
	"mail":        FieldEmail,
	"eposta":      FieldEmail,
	"epostaadres": FieldEmail,

	"telefon": FieldPhone,
	"phone":   FieldPhone,
	"tel":     FieldPhone,
	"gsm":     FieldPhone,

	"policeturu":   FieldPolicyType,
	"policetur":    FieldPolicyType,
	"policetip":    FieldPolicyType,
	"policedurumu": FieldPolicyType,
	"sigortaturu":  FieldPolicyType,

	"policenot":        fieldIgnore,
	"policeno":         fieldIgnore,
	"policenumarasi":   fieldIgnore,
	"policenumarasiid": fieldIgnore,
	"policenumber":     fieldIgnore,

	"policestart":           FieldPolicyStart,
	"policestartdate":       FieldPolicyStart,
	"policebaslangic":       FieldPolicyStart,
	"policebaslangictarihi": FieldPolicyStart,
	"baslangictarihi":       FieldPolicyStart,
	"baslangic":             FieldPolicyStart,

	"policend":         FieldPolicyEnd,
	"policebitis":      FieldPolicyEnd,
	"policebitistarihi": FieldPolicyEnd,
	"bitistarihi":      FieldPolicyEnd,
	"bitis":            FieldPolicyEnd,

	"policekapsami": fieldIgnore,
	"kapsam":        fieldIgnore,
}

var savingsRequiredFields = []Field{FieldName, FieldEmail, FieldFirstSavings, FieldCurrentSavings}

var policyRequiredFields = []Field{FieldName, FieldEmail, FieldPolicyType, FieldPolicyStart, FieldPolicyEnd}

var fieldLabels = map[Kind]map[Field]string{
	KindSavings: {
		FieldName:           "Ad Soyad",
		FieldEmail:          "E-posta",
		FieldFirstSavings:   "İlk Tasarruf",
		FieldCurrentSavings: "Güncel Tasarruf",
	},
	KindPolicy: {
		FieldName:        "Kişi",
		FieldEmail:       "E-posta",
		FieldPolicyType:  "Poliçe Türü",
		FieldPolicyStart: "Poliçe Başlangıç Tarihi",
		FieldPolicyEnd:   "Poliçe Bitiş Tarihi",
	},
}

func synonymsFor(kind Kind) map[string]Field {
	if kind == KindPolicy {
		return policyHeaderSynonyms
	}
	return savingsHeaderSynonyms
}

func requiredFieldsFor(kind Kind) []Field {
	if kind == KindPolicy {
		return policyRequiredFields
	}
	return savingsRequiredFields
}

// mapHeader resolves each header cell to a canonical field position. The
// first column claiming a field wins; later duplicates are dropped. A missing
// required field fails the whole import with the raw header echoed back so the
// consultant can see what the file actually contained.
func mapHeader(kind Kind, headerCells []string, rawHeader string) (map[Field]int, error) {
	synonyms := synonymsFor(kind)
	positions := make(map[Field]int)

	for index, cell := range headerCells {
		field, ok := synonyms[NormalizeHeader(cell)]
		if !ok || field == fieldIgnore {
			continue
		}
		if _, claimed := positions[field]; !claimed {
			positions[field] = index
		}
	}

	var missing []string
	for _, field := range requiredFieldsFor(kind) {
		if _, ok := positions[field]; !ok {
			missing = append(missing, fieldLabels[kind][field])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf(
			"Başlıklar eksik veya tanınmadı. Dosya en azından %s kolonlarını içermelidir. (Mevcut başlık satırı: %s)",
			strings.Join(missing, ", "), rawHeader,
		)
	}

	return positions, nil
}
