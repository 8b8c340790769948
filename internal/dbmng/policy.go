package dbmng

import (
	"regexp"
	"strings"
)

// スキーマ変更・権限系。allow_write に関係なく常に拒否
var denyKeywords = map[string]struct{}{
	"DROP": {}, "TRUNCATE": {}, "ALTER": {}, "CREATE": {},
	"GRANT": {}, "REVOKE": {}, "RENAME": {},
}

// 行の変更系。allow_write=true のときだけ許可
var writeKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {},
}

// 結果セットを返す文の先頭キーワード
var readKeywords = []string{"SELECT", "WITH", "SHOW", "EXPLAIN"}

// 識別子単位で切る。created_at は CREATE に一致しないが、/*!DROP*/ やリテラル内の DROP は一致する
var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// checkPolicy: 出現順で最初に見つかった禁止キーワードを返す
func checkPolicy(query string, allowWrite bool) error {
	words := wordRe.FindAllString(query, -1)
	for _, w := range words {
		u := strings.ToUpper(w)
		if _, ng := denyKeywords[u]; ng {
			return ErrForbidden("operation not allowed: " + u)
		}
	}
	if allowWrite {
		return nil
	}
	for _, w := range words {
		u := strings.ToUpper(w)
		if _, ng := writeKeywords[u]; ng {
			return ErrForbidden(u + " requires allow_write=true")
		}
	}
	return nil
}

// isProjection: 先頭が読み取り系キーワードか
func isProjection(query string) bool {
	q := strings.ToUpper(strings.TrimLeft(strings.TrimSpace(query), "( \t\r\n"))
	for _, kw := range readKeywords {
		if !strings.HasPrefix(q, kw) {
			continue
		}
		rest := q[len(kw):]
		if rest == "" || !isWordByte(rest[0]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('A' <= b && b <= 'Z') || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}
