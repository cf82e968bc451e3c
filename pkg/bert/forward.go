package bert

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// 被遮盖位置的注意力偏置
const maskBias = -10000

// Forward 执行一次前向计算，返回两个未归一化的类别分数
func (m *Model) Forward(ctx context.Context, inputIDs, attentionMask []int) ([]float32, error) {
	seq := len(inputIDs)
	if seq == 0 {
		return nil, errors.New("empty input sequence")
	}
	if len(attentionMask) != seq {
		return nil, errors.Errorf("attention mask length %d does not match input length %d", len(attentionMask), seq)
	}
	if seq > m.maxPositions {
		return nil, errors.Errorf("sequence length %d exceeds model maximum %d", seq, m.maxPositions)
	}
	for i, id := range inputIDs {
		if id < 0 || id >= m.vocabSize {
			return nil, errors.Errorf("token id %d at position %d is outside the vocabulary (%d)", id, i, m.vocabSize)
		}
	}

	x := m.embed(inputIDs)
	for i := range m.layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x = m.layers[i].forward(x, seq, m.hidden, m.heads, attentionMask)
	}

	cls := make([]float32, m.hidden)
	copy(cls, x[:m.hidden])
	pooled := m.pooler.forward(cls, 1)
	tanh(pooled)
	logits := m.classifier.forward(pooled, 1)
	for _, v := range logits {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errors.Errorf("non-finite logits %v", logits)
		}
	}
	return logits, nil
}

func (m *Model) embed(inputIDs []int) []float32 {
	h := m.hidden
	x := make([]float32, len(inputIDs)*h)
	for t, id := range inputIDs {
		row := x[t*h : (t+1)*h]
		word := m.wordEmbeddings[id*h : (id+1)*h]
		pos := m.positionEmbeddings[t*h : (t+1)*h]
		for i := range row {
			row[i] = word[i] + pos[i] + m.tokenTypeEmbedding[i]
		}
	}
	m.embeddingNorm.apply(x, len(inputIDs), h)
	return x
}

func (l *encoderLayer) forward(x []float32, seq, hidden, heads int, mask []int) []float32 {
	q := l.query.forward(x, seq)
	k := l.key.forward(x, seq)
	v := l.value.forward(x, seq)

	headDim := hidden / heads
	scale := float32(1 / math.Sqrt(float64(headDim)))
	mixed := make([]float32, seq*hidden)
	scores := make([]float32, seq)
	for hd := 0; hd < heads; hd++ {
		off := hd * headDim
		for i := 0; i < seq; i++ {
			qi := q[i*hidden+off : i*hidden+off+headDim]
			for j := 0; j < seq; j++ {
				s := dot(qi, k[j*hidden+off:j*hidden+off+headDim]) * scale
				if mask[j] == 0 {
					s += maskBias
				}
				scores[j] = s
			}
			softmax(scores)
			ci := mixed[i*hidden+off : i*hidden+off+headDim]
			for j, p := range scores {
				if p == 0 {
					continue
				}
				vj := v[j*hidden+off : j*hidden+off+headDim]
				for d := range ci {
					ci[d] += p * vj[d]
				}
			}
		}
	}

	attn := l.attnOutput.forward(mixed, seq)
	addInPlace(attn, x)
	l.attnNorm.apply(attn, seq, hidden)

	inter := l.intermediate.forward(attn, seq)
	gelu(inter)
	out := l.output.forward(inter, seq)
	addInPlace(out, attn)
	l.outputNorm.apply(out, seq, hidden)
	return out
}
