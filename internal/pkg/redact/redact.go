// redact маскирует чувствительные данные перед записью в логи.
package redact

import "strings"

// Email маскирует e-mail: первые два символа локальной части + "***".
//
//	"janete@corca.com" -> "ja***@corca.com"
//	"ab@ex.com"        -> "***@ex.com"
//	"no-at"            -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает короткий отпечаток токена: последние 6 символов.
// Подпись JWT в конце, поэтому по отпечатку нельзя восстановить токен,
// но можно сопоставить записи одного запроса.
func Token(tok string) string {
	const keep = 6
	if len(tok) <= keep*2 {
		return "[REDACTED_TOKEN]"
	}

	return "…" + tok[len(tok)-keep:]
}

