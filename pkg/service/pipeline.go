package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"tweet-verify/config"
	"tweet-verify/pkg/bert"
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/tokenizer"
)

// Analyzer 对一段文本给出分析结论
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*model.Verdict, error)
}

// Pipeline 组合分词器与模型，加载后只读，可并发使用
type Pipeline struct {
	tokenizer *tokenizer.Tokenizer
	model     *bert.Model
}

// LoadPipeline 按配置加载模型和词表。模型文件不存在时返回 bert.ErrModelNotFound
func LoadPipeline(cfg *config.ModelConfig) (p *Pipeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("加载模型失败: %v", r)
		}
	}()

	m, err := bert.Load(cfg.Path, bert.Options{
		NumHeads:     cfg.NumHeads,
		LayerNormEps: cfg.LayerNormEps,
		HeadName:     cfg.HeadName,
	})
	if err != nil {
		return nil, err
	}
	zap.S().Debugf("模型加载完成: 隐藏层 %d, 编码器层数 %d, 词表 %d", m.Hidden(), m.NumLayers(), m.VocabSize())

	tok, err := tokenizer.FromFile(cfg.VocabPath, tokenizer.Options{
		MaxLength:   cfg.MaxLength,
		DoLowerCase: cfg.DoLowerCase,
	})
	if err != nil {
		return nil, err
	}
	if tok.Vocab().Size() > m.VocabSize() {
		return nil, errors.Errorf("vocabulary size %d exceeds model vocabulary %d", tok.Vocab().Size(), m.VocabSize())
	}
	return &Pipeline{tokenizer: tok, model: m}, nil
}

// Analyze 分词、前向计算并给出结论
func (p *Pipeline) Analyze(ctx context.Context, text string) (verdict *model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = nil, fmt.Errorf("%v", r)
		}
	}()

	enc := p.tokenizer.Encode(text)
	if enc.Truncated {
		zap.S().Debugf("输入超过 %d 个 token，已截断", p.tokenizer.MaxLength())
	}
	logits, err := p.model.Forward(ctx, enc.InputIDs, enc.AttentionMask)
	if err != nil {
		return nil, err
	}
	zap.S().Debugf("logits: %v", logits)
	return Decide(logits)
}

// AnalyzeOnce 加载模型并分析一次，对应 analyze 命令每次调用重新加载的语义
func AnalyzeOnce(ctx context.Context, cfg *config.ModelConfig, text string) (verdict *model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = nil, fmt.Errorf("%v", r)
		}
	}()
	p, err := LoadPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, text)
}

// LazyAnalyzer 持有启动时的加载结果，模型不可用时每次返回加载错误
type LazyAnalyzer struct {
	pipeline *Pipeline
	loadErr  error
}

// NewLazyAnalyzer 尝试加载模型，失败不会返回错误
func NewLazyAnalyzer(cfg *config.ModelConfig) *LazyAnalyzer {
	p, err := LoadPipeline(cfg)
	if err != nil {
		zap.S().Warnf("模型加载失败: %v", err)
	}
	return &LazyAnalyzer{pipeline: p, loadErr: err}
}

// Ready 判断模型是否可用
func (a *LazyAnalyzer) Ready() bool {
	return a.pipeline != nil
}

func (a *LazyAnalyzer) Analyze(ctx context.Context, text string) (*model.Verdict, error) {
	if a.pipeline == nil {
		return nil, a.loadErr
	}
	return a.pipeline.Analyze(ctx, text)
}
