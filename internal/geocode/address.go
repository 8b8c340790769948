package geocode

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const sep = ", "

// 組み立て順。各要素は候補キーの優先順
var addressParts = [][]string{
	{"house_number"},
	{"road"},
	{"neighbourhood", "neighborhood", "suburb"},
	{"city", "town", "village"},
	{"state"},
	postcodeKeys,
	{"country"},
}

// 郵便番号はプロバイダごとにキー名が違う
var postcodeKeys = []string{"postcode", "postal_code", "postalcode", "zip", "zipcode"}

var (
	postcodeToken = regexp.MustCompile(`\b\d{4,6}\b`)
	coordPair     = regexp.MustCompile(`^\s*\(?\s*[-+]?\d{1,3}(\.\d+)?\s*,\s*[-+]?\d{1,3}(\.\d+)?\s*\)?\s*$`)
)

func firstOf(c map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c[k]); v != "" {
			return v
		}
	}
	return ""
}

// AssembleAddress: 存在する要素だけを順に連結する。空要素は出さない
func AssembleAddress(c map[string]string) string {
	if len(c) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addressParts))
	for _, keys := range addressParts {
		if v := firstOf(c, keys); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

// PostcodeOf: 別名込みで郵便番号を探す
func PostcodeOf(c map[string]string) string {
	return firstOf(c, postcodeKeys)
}

// withPostcode: 郵便番号を差し替えたコピー
func withPostcode(c map[string]string, code string) map[string]string {
	out := make(map[string]string, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	for _, k := range postcodeKeys {
		delete(out, k)
	}
	out["postcode"] = code
	return out
}

// NeedsPostcodeRepair: 欠落、または 4 文字未満
func NeedsPostcodeRepair(code string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(code)) < 4
}

// DisplayNameFallback: 構造化要素が無いときの表示名。20 文字超かつカンマを含むものだけ採用
func DisplayNameFallback(display string) string {
	d := strings.TrimSpace(display)
	if utf8.RuneCountInString(d) <= 20 || !strings.Contains(d, ",") {
		return ""
	}
	if IsCoordinatePair(d) {
		return ""
	}
	return d
}

// IsCoordinatePair: "35.68, 139.76" のような座標文字列か
func IsCoordinatePair(s string) bool {
	return coordPair.MatchString(s)
}

// SplicePostcode: 既存の 4〜6 桁トークンを置換。無ければ国名の直前、国名も無ければ末尾
func SplicePostcode(address, code, country string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return address
	}
	if address == "" {
		return code
	}
	if loc := postcodeToken.FindStringIndex(address); loc != nil {
		return address[:loc[0]] + code + address[loc[1]:]
	}
	country = strings.TrimSpace(country)
	if country != "" {
		tail := sep + country
		if strings.HasSuffix(address, tail) {
			return strings.TrimSuffix(address, tail) + sep + code + tail
		}
		if address == country {
			return code + sep + country
		}
	}
	return address + sep + code
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
