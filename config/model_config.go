package config

import (
	"github.com/pkg/errors"
)

type ModelConfig struct {
	Path         string  `json:"path" yaml:"path"`                 // safetensors 模型文件路径
	VocabPath    string  `json:"vocabPath" yaml:"vocabPath"`       // WordPiece 词表路径
	MaxLength    int     `json:"maxLength" yaml:"maxLength"`       // 输入序列固定长度
	NumHeads     int     `json:"numHeads" yaml:"numHeads"`         // 注意力头数
	LayerNormEps float64 `json:"layerNormEps" yaml:"layerNormEps"` // LayerNorm epsilon
	DoLowerCase  bool    `json:"doLowerCase" yaml:"doLowerCase"`   // 是否转小写（uncased 模型）
	HeadName     string  `json:"headName" yaml:"headName"`         // 分类头张量前缀
}

func (m *ModelConfig) Validate() []error {
	var errs = make([]error, 0)
	if m.Path == "" {
		errs = append(errs, errors.New("模型路径不能为空"))
	}
	if m.VocabPath == "" {
		errs = append(errs, errors.New("词表路径不能为空"))
	}
	if m.MaxLength < 2 {
		errs = append(errs, errors.Errorf("maxLength 至少为 2，当前为 %d", m.MaxLength))
	}
	if m.NumHeads <= 0 {
		errs = append(errs, errors.Errorf("numHeads 必须大于 0，当前为 %d", m.NumHeads))
	}
	if m.LayerNormEps <= 0 {
		errs = append(errs, errors.Errorf("layerNormEps 必须大于 0，当前为 %g", m.LayerNormEps))
	}
	return errs
}

func NewDefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Path:         "./saved_models/bert_model.safetensors",
		VocabPath:    "./saved_models/vocab.txt",
		MaxLength:    128,
		NumHeads:     12,
		LayerNormEps: 1e-12,
		DoLowerCase:  true,
		HeadName:     "classifier",
	}
}
