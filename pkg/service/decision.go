package service

import (
	"math"

	"github.com/pkg/errors"

	"tweet-verify/pkg/model"
)

// FakeThreshold 是判定为虚假的概率阈值，严格大于才判定为虚假
const FakeThreshold = 0.5

// Decide 对两个 logit 做 softmax，取虚假类别（下标 1）的概率作为置信度
func Decide(logits []float32) (*model.Verdict, error) {
	if len(logits) != 2 {
		return nil, errors.Errorf("expected 2 class logits, got %d", len(logits))
	}
	a, b := float64(logits[0]), float64(logits[1])
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return nil, errors.Errorf("non-finite logits [%v %v]", a, b)
	}
	m := math.Max(a, b)
	ea, eb := math.Exp(a-m), math.Exp(b-m)
	p := eb / (ea + eb)
	return &model.Verdict{
		IsFakeNews:      p > FakeThreshold,
		ConfidenceScore: p,
	}, nil
}
