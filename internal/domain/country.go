package domain

import "strings"

const GenericTemplate = "visa_order_confirmation_generic"

// countryAliases maps every accepted spelling onto a canonical ISO 3166 alpha-2 code.
var countryAliases = map[string]string{
	"in": "IN", "ind": "IN", "india": "IN",
	"th": "TH", "tha": "TH", "thailand": "TH",
	"vn": "VN", "vnm": "VN", "vietnam": "VN", "viet nam": "VN",
	"lk": "LK", "lka": "LK", "sri lanka": "LK", "srilanka": "LK",
	"ke": "KE", "ken": "KE", "kenya": "KE",
	"tr": "TR", "tur": "TR", "turkey": "TR", "turkiye": "TR", "türkiye": "TR",
	"eg": "EG", "egy": "EG", "egypt": "EG",
	"gb": "GB", "uk": "GB", "gbr": "GB", "united kingdom": "GB", "great britain": "GB", "england": "GB",
	"us": "US", "usa": "US", "united states": "US", "america": "US",
	"ca": "CA", "can": "CA", "canada": "CA",
	"au": "AU", "aus": "AU", "australia": "AU",
	"ae": "AE", "uae": "AE", "united arab emirates": "AE", "dubai": "AE",
	"schengen": "EU", "eu": "EU", "europe": "EU",
}

var countryTemplates = map[string]string{
	"IN": "visa_order_confirmation_india",
	"TH": "visa_order_confirmation_thailand",
	"VN": "visa_order_confirmation_vietnam",
	"LK": "visa_order_confirmation_srilanka",
	"KE": "visa_order_confirmation_kenya",
	"TR": "visa_order_confirmation_turkey",
	"EG": "visa_order_confirmation_egypt",
	"GB": "visa_order_confirmation_uk",
	"US": "visa_order_confirmation_usa",
	"CA": "visa_order_confirmation_canada",
	"AU": "visa_order_confirmation_australia",
	"AE": "visa_order_confirmation_uae",
	"EU": "visa_order_confirmation_schengen",
}

// NormalizeCountry returns the canonical code of a country name or code, and
// whether it is a known destination.
func NormalizeCountry(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if code, ok := countryAliases[key]; ok {
		return code, true
	}

	return strings.ToUpper(key), false
}

// TemplateForCountry maps a destination onto its WhatsApp template.
func TemplateForCountry(raw string) string {
	code, _ := NormalizeCountry(raw)
	if template, ok := countryTemplates[code]; ok {
		return template
	}

	return GenericTemplate
}
