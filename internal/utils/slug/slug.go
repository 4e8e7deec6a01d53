package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

// Make 由题目标题猜测 slug：NFKD 分解去掉变音符与非 ASCII 字符，小写，
// 非单词字符删除，空白与连字符合并为单个 "-"。
// 仅为猜测值，真实 slug 以提交记录中的 titleSlug 为准。
func Make(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(isNonASCII)))
	s, _, err := transform.String(t, title)
	if err != nil {
		s = title
	}
	s = invalidChars.ReplaceAllString(strings.ToLower(s), "")
	s = separators.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-_")
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}
