// Package slug derives URL-safe identifiers from article titles.
package slug

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug Make returns.
const MaxLength = 100

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
}

// Make transliterates title and reduces it to [a-z0-9-]. The result has no
// leading or trailing hyphen and is at most MaxLength bytes. It is empty when
// title contains nothing transliterable.
func Make(title string) string {
	lower := strings.ToLower(norm.NFC.String(title))

	var translit strings.Builder
	translit.Grow(len(lower))
	for _, r := range lower {
		if latin, ok := cyrillic[r]; ok {
			translit.WriteString(latin)
			continue
		}
		translit.WriteRune(r)
	}

	var out strings.Builder
	pendingHyphen := false
	for _, r := range translit.String() {
		if isSlugChar(r) {
			if pendingHyphen && out.Len() > 0 {
				out.WriteByte('-')
			}
			pendingHyphen = false
			out.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	s := out.String()
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}

func isSlugChar(r rune) bool {
	return r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
