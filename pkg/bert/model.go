// Package bert 实现 BertForSequenceClassification 的推理前向计算。
//
// 仅支持推理模式：不实现 dropout，也没有梯度计算，相同输入总是得到相同输出。
package bert

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/pkg/errors"

	"tweet-verify/pkg/safetensors"
)

// NumClasses 是分类头必须输出的类别数（0: 非虚假, 1: 虚假）
const NumClasses = 2

// ErrModelNotFound 表示模型文件不存在
var ErrModelNotFound = errors.New("model file not found")

// Options 是参数文件中无法推断的结构参数
type Options struct {
	NumHeads     int
	LayerNormEps float64
	// HeadName 是分类头张量前缀，默认 classifier
	HeadName string
}

// DefaultOptions 对应 bert-base-uncased
func DefaultOptions() Options {
	return Options{
		NumHeads:     12,
		LayerNormEps: 1e-12,
		HeadName:     "classifier",
	}
}

type encoderLayer struct {
	query, key, value linear
	attnOutput        linear
	attnNorm          layerNorm
	intermediate      linear
	output            linear
	outputNorm        layerNorm
}

// Model 是加载完成的分类模型，加载后只读，可并发调用 Forward
type Model struct {
	hidden       int
	heads        int
	vocabSize    int
	maxPositions int

	wordEmbeddings     []float32
	positionEmbeddings []float32
	tokenTypeEmbedding []float32
	embeddingNorm      layerNorm

	layers     []encoderLayer
	pooler     linear
	classifier linear
}

// Hidden 返回隐藏层维度
func (m *Model) Hidden() int { return m.hidden }

// NumLayers 返回编码器层数
func (m *Model) NumLayers() int { return len(m.layers) }

// MaxPositions 返回支持的最大序列长度
func (m *Model) MaxPositions() int { return m.maxPositions }

// VocabSize 返回词表大小
func (m *Model) VocabSize() int { return m.vocabSize }

// Load 从 safetensors 文件加载模型
func Load(path string, opts Options) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(ErrModelNotFound, path)
		}
		return nil, err
	}
	f, err := safetensors.Load(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f, opts)
}

// FromFile 从已解析的参数文件构建模型
func FromFile(f *safetensors.File, opts Options) (*Model, error) {
	if opts.NumHeads <= 0 {
		return nil, errors.Errorf("invalid attention head count %d", opts.NumHeads)
	}
	if opts.HeadName == "" {
		opts.HeadName = "classifier"
	}
	if opts.LayerNormEps <= 0 {
		opts.LayerNormEps = 1e-12
	}
	l := &loader{file: f, eps: opts.LayerNormEps}
	if !f.Has("bert.embeddings.word_embeddings.weight") && f.Has("embeddings.word_embeddings.weight") {
		l.prefix = ""
	} else {
		l.prefix = "bert."
	}

	word := l.tensor(l.prefix + "embeddings.word_embeddings.weight")
	if l.err != nil {
		return nil, l.err
	}
	if len(word.Shape) != 2 {
		return nil, errors.Errorf("word embeddings must be 2-D, got %v", word.Shape)
	}
	m := &Model{
		vocabSize: word.Shape[0],
		hidden:    word.Shape[1],
		heads:     opts.NumHeads,
	}
	if m.hidden%m.heads != 0 {
		return nil, errors.Errorf("hidden size %d is not divisible by %d attention heads", m.hidden, m.heads)
	}
	m.wordEmbeddings = word.Data

	pos := l.tensor(l.prefix + "embeddings.position_embeddings.weight")
	if l.err == nil {
		if len(pos.Shape) != 2 || pos.Shape[1] != m.hidden {
			return nil, errors.Errorf("position embeddings shape %v does not match hidden size %d", pos.Shape, m.hidden)
		}
		m.maxPositions = pos.Shape[0]
		m.positionEmbeddings = pos.Data
	}
	// 只使用 token type 0
	m.tokenTypeEmbedding = l.rows(l.prefix+"embeddings.token_type_embeddings.weight", m.hidden)
	m.embeddingNorm = l.norm(l.prefix+"embeddings.LayerNorm", m.hidden)

	for i := 0; l.err == nil && f.Has(fmt.Sprintf("%sencoder.layer.%d.attention.self.query.weight", l.prefix, i)); i++ {
		p := fmt.Sprintf("%sencoder.layer.%d.", l.prefix, i)
		layer := encoderLayer{
			query:      l.linear(p+"attention.self.query", m.hidden, m.hidden),
			key:        l.linear(p+"attention.self.key", m.hidden, m.hidden),
			value:      l.linear(p+"attention.self.value", m.hidden, m.hidden),
			attnOutput: l.linear(p+"attention.output.dense", m.hidden, m.hidden),
			attnNorm:   l.norm(p+"attention.output.LayerNorm", m.hidden),
		}
		layer.intermediate = l.linear(p+"intermediate.dense", -1, m.hidden)
		layer.output = l.linear(p+"output.dense", m.hidden, layer.intermediate.out)
		layer.outputNorm = l.norm(p+"output.LayerNorm", m.hidden)
		m.layers = append(m.layers, layer)
	}
	if l.err == nil && len(m.layers) == 0 {
		return nil, errors.New("no encoder layers found in model file")
	}
	m.pooler = l.linear(l.prefix+"pooler.dense", m.hidden, m.hidden)
	m.classifier = l.linear(opts.HeadName, -1, m.hidden)
	if l.err != nil {
		return nil, l.err
	}
	if m.classifier.out != NumClasses {
		return nil, errors.Errorf("classifier must produce exactly %d class logits, got %d", NumClasses, m.classifier.out)
	}
	return m, nil
}

// loader 记录第一个错误，后续调用直接跳过
type loader struct {
	file   *safetensors.File
	prefix string
	eps    float64
	err    error
}

func (l *loader) tensor(name string) *safetensors.Tensor {
	if l.err != nil {
		return nil
	}
	t, err := l.file.Tensor(name)
	if err != nil {
		l.err = err
		return nil
	}
	return t
}

// rows 读取二维张量的第一行
func (l *loader) rows(name string, dim int) []float32 {
	t := l.tensor(name)
	if t == nil {
		return nil
	}
	if len(t.Shape) != 2 || t.Shape[0] < 1 || t.Shape[1] != dim {
		l.err = errors.Errorf("tensor %q has shape %v, want [*, %d]", name, t.Shape, dim)
		return nil
	}
	return t.Data[:dim]
}

func (l *loader) vector(name string, dim int) []float32 {
	t := l.tensor(name)
	if t == nil {
		return nil
	}
	if len(t.Shape) != 1 || t.Shape[0] != dim {
		l.err = errors.Errorf("tensor %q has shape %v, want [%d]", name, t.Shape, dim)
		return nil
	}
	return t.Data
}

// linear 读取 name.weight / name.bias；out 为 -1 时从张量推断
func (l *loader) linear(name string, out, in int) linear {
	w := l.tensor(name + ".weight")
	if w == nil {
		return linear{}
	}
	if len(w.Shape) != 2 || w.Shape[1] != in || (out >= 0 && w.Shape[0] != out) {
		l.err = errors.Errorf("tensor %q has shape %v, want [%d, %d]", name+".weight", w.Shape, out, in)
		return linear{}
	}
	b := l.vector(name+".bias", w.Shape[0])
	return linear{weight: w.Data, bias: b, in: in, out: w.Shape[0]}
}

// norm 读取 LayerNorm 参数，兼容旧版 gamma/beta 命名
func (l *loader) norm(name string, dim int) layerNorm {
	weight, bias := name+".weight", name+".bias"
	if !l.file.Has(weight) && l.file.Has(name+".gamma") {
		weight, bias = name+".gamma", name+".beta"
	}
	return layerNorm{
		gamma: l.vector(weight, dim),
		beta:  l.vector(bias, dim),
		eps:   l.eps,
	}
}
