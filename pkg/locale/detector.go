package locale

import "strings"

// FromAcceptLanguage picks the first supported language in an Accept-Language
// header. Quality weights are ignored; clients list their preference first.
func FromAcceptLanguage(header string, fallback Locale) Locale {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if i := strings.IndexByte(tag, ';'); i >= 0 {
			tag = tag[:i]
		}
		if i := strings.IndexByte(tag, '-'); i >= 0 {
			tag = tag[:i]
		}
		if l, ok := Parse(strings.ToLower(tag)); ok {
			return l
		}
	}
	return fallback
}
