// Package testutil 为测试生成小型 BERT 检查点和词表
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tweet-verify/pkg/safetensors"
)

// FixtureVocab 是测试词表，行号即 token id
var FixtureVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"the", "moon", "is", "made", "of", "cheese", "scientists", "confirm",
	"fake", "news", "breaking", "secret", "they", "don", "'", "t", "want",
	"you", "to", "know", "un", "##aff", "##able", "cafe", "!", ".", ",",
	"##s", "a", "cat", "##ing", "run", "中", "国",
}

// Fixture 描述生成的检查点结构
type Fixture struct {
	Hidden       int
	Heads        int
	Layers       int
	Intermediate int
	MaxPositions int
	Classes      int
	Seed         int64
	// Prefix 为张量名前缀，默认 "bert."
	Prefix string
}

// DefaultFixture 返回默认的小模型结构
func DefaultFixture() Fixture {
	return Fixture{
		Hidden:       8,
		Heads:        2,
		Layers:       2,
		Intermediate: 16,
		MaxPositions: 128,
		Classes:      2,
		Seed:         20240501,
		Prefix:       "bert.",
	}
}

// 随机参数取值范围 [-weightScale, weightScale)
const weightScale = 0.8

// splitMix64 生成与平台和 Go 版本无关的固定序列，检查点的推理结果因此可以写死在测试里
type splitMix64 struct {
	state uint64
}

func (r *splitMix64) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (r *splitMix64) uniform(scale float64) float32 {
	u := float64(r.next()>>11) / (1 << 53)
	return float32((2*u - 1) * scale)
}

// Tensors 按 BertForSequenceClassification 命名生成随机参数
func (f Fixture) Tensors() []*safetensors.Tensor {
	rng := &splitMix64{state: uint64(f.Seed)}
	var out []*safetensors.Tensor
	random := func(name string, shape ...int) {
		t := &safetensors.Tensor{Name: name, Shape: shape}
		t.Data = make([]float32, t.NumElements())
		for i := range t.Data {
			t.Data[i] = rng.uniform(weightScale)
		}
		out = append(out, t)
	}
	constant := func(name string, v float32, dim int) {
		t := &safetensors.Tensor{Name: name, Shape: []int{dim}, Data: make([]float32, dim)}
		for i := range t.Data {
			t.Data[i] = v
		}
		out = append(out, t)
	}
	norm := func(name string) {
		constant(name+".weight", 1, f.Hidden)
		constant(name+".bias", 0, f.Hidden)
	}
	dense := func(name string, outDim, inDim int) {
		random(name+".weight", outDim, inDim)
		random(name+".bias", outDim)
	}

	p := f.Prefix
	random(p+"embeddings.word_embeddings.weight", len(FixtureVocab), f.Hidden)
	random(p+"embeddings.position_embeddings.weight", f.MaxPositions, f.Hidden)
	random(p+"embeddings.token_type_embeddings.weight", 2, f.Hidden)
	norm(p + "embeddings.LayerNorm")
	for i := 0; i < f.Layers; i++ {
		l := fmt.Sprintf("%sencoder.layer.%d.", p, i)
		dense(l+"attention.self.query", f.Hidden, f.Hidden)
		dense(l+"attention.self.key", f.Hidden, f.Hidden)
		dense(l+"attention.self.value", f.Hidden, f.Hidden)
		dense(l+"attention.output.dense", f.Hidden, f.Hidden)
		norm(l + "attention.output.LayerNorm")
		dense(l+"intermediate.dense", f.Intermediate, f.Hidden)
		dense(l+"output.dense", f.Hidden, f.Intermediate)
		norm(l + "output.LayerNorm")
	}
	dense(p+"pooler.dense", f.Hidden, f.Hidden)
	dense("classifier", f.Classes, f.Hidden)
	return out
}

// WriteModel 将检查点写入 dir，返回模型路径
func (f Fixture) WriteModel(tb testing.TB, dir string) string {
	tb.Helper()
	path := filepath.Join(dir, "bert_model.safetensors")
	if err := safetensors.WriteFile(path, f.Tensors(), map[string]string{"format": "pt"}); err != nil {
		tb.Fatalf("write fixture model: %v", err)
	}
	return path
}

// WriteVocab 将 FixtureVocab 写入 dir，返回词表路径
func WriteVocab(tb testing.TB, dir string) string {
	tb.Helper()
	path := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(FixtureVocab, "\n")+"\n"), 0o644); err != nil {
		tb.Fatalf("write fixture vocab: %v", err)
	}
	return path
}

// WriteAll 生成默认模型和词表
func WriteAll(tb testing.TB) (modelPath, vocabPath string) {
	tb.Helper()
	dir := tb.TempDir()
	return DefaultFixture().WriteModel(tb, dir), WriteVocab(tb, dir)
}

// 默认检查点的已知推理结果。SampleTweet 分词后为
// [CLS] scientists confirm the moon is made of cheese [SEP]
const (
	SampleTweet      = "Scientists confirm the moon is made of cheese"
	SampleTweetScore = 0.2289037
)

// SampleTweetIDs 是 SampleTweet 去掉填充后的 token id
var SampleTweetIDs = []int{2, 11, 12, 5, 6, 7, 8, 9, 10, 3}

// SampleTweetLogits 是默认检查点对 SampleTweet 输出的 logits
var SampleTweetLogits = []float32{1.0144788, -0.20003295}
