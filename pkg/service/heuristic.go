package service

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"tweet-verify/pkg/model"
)

// 常见于虚假新闻的措辞
var suspiciousPhrases = []string{
	"fake", "conspiracy", "shocking", "they dont want you to know",
	"secret", "banned", "censored", "msm wont report", "share before deleted",
}

const (
	heuristicBase      = 0.5
	heuristicPhrase    = 0.1
	heuristicStyle     = 0.05
	heuristicCap       = 0.9
	heuristicThreshold = 0.6
)

// HeuristicAnalyzer 在模型不可用时按文本特征粗略打分，仅用于开发和兜底
type HeuristicAnalyzer struct{}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

func (h *HeuristicAnalyzer) Analyze(_ context.Context, text string) (*model.Verdict, error) {
	return MockAnalyze(text), nil
}

// MockAnalyze 基础分 0.5，每个可疑短语 +0.1，"!!!" 和全大写各 +0.05，上限 0.9
func MockAnalyze(text string) *model.Verdict {
	score := heuristicBase
	lower := strings.ToLower(text)
	for _, phrase := range suspiciousPhrases {
		if strings.Contains(lower, phrase) {
			score += heuristicPhrase
		}
	}
	if strings.Contains(text, "!!!") {
		score += heuristicStyle
	}
	if text == strings.ToUpper(text) && utf8.RuneCountInString(text) > 10 {
		score += heuristicStyle
	}
	score = math.Min(score, heuristicCap)
	return &model.Verdict{
		IsFakeNews:      score > heuristicThreshold,
		ConfidenceScore: score,
	}
}
