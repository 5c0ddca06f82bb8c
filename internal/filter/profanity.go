// Package filter はメッセージ本文の不適切表現を判定します
package filter

import goaway "github.com/TwiN/go-away"

// Filter は go-away の判定器をラップした分類器です
// 判定器は読み取り専用のため複数のgoroutineから共有できます
type Filter struct {
	detector *goaway.ProfanityDetector
}

// New はデフォルトの単語リストを使う Filter を作成します
func New() *Filter {
	return &Filter{detector: goaway.NewProfanityDetector()}
}

// IsFlagged は本文に不適切な表現が含まれる場合に true を返します
func (f *Filter) IsFlagged(text string) bool {
	if text == "" {
		return false
	}
	return f.detector.IsProfane(text)
}
