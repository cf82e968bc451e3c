// Package tokenizer 实现 bert-base-uncased 的 WordPiece 分词，
// 输出固定长度的 token id 序列和 attention mask。
package tokenizer

import (
	"github.com/pkg/errors"
)

// 特殊 token
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"

	continuationPrefix = "##"
	maxWordRunes       = 100
)

// DefaultMaxLength 是模型输入的固定长度
const DefaultMaxLength = 128

// Options 控制分词行为
type Options struct {
	MaxLength   int
	DoLowerCase bool
}

// DefaultOptions 对应 bert-base-uncased
func DefaultOptions() Options {
	return Options{MaxLength: DefaultMaxLength, DoLowerCase: true}
}

// Encoding 是定长的模型输入，两个序列长度恒等于 MaxLength
type Encoding struct {
	InputIDs      []int
	AttentionMask []int
	// Truncated 表示输入超长被截断
	Truncated bool
}

// Tokenizer 是无状态的 WordPiece 分词器，可并发使用
type Tokenizer struct {
	vocab *Vocab
	opts  Options

	padID, unkID, clsID, sepID int
}

// New 基于词表创建分词器
func New(vocab *Vocab, opts Options) (*Tokenizer, error) {
	if opts.MaxLength < 2 {
		return nil, errors.Errorf("max length must be at least 2, got %d", opts.MaxLength)
	}
	t := &Tokenizer{vocab: vocab, opts: opts}
	for token, dst := range map[string]*int{
		PadToken: &t.padID,
		UnkToken: &t.unkID,
		ClsToken: &t.clsID,
		SepToken: &t.sepID,
	} {
		id, ok := vocab.ID(token)
		if !ok {
			return nil, errors.Errorf("vocabulary is missing special token %s", token)
		}
		*dst = id
	}
	return t, nil
}

// FromFile 读取词表并创建分词器
func FromFile(vocabPath string, opts Options) (*Tokenizer, error) {
	v, err := LoadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return New(v, opts)
}

// MaxLength 返回输出序列长度
func (t *Tokenizer) MaxLength() int {
	return t.opts.MaxLength
}

// Vocab 返回词表
func (t *Tokenizer) Vocab() *Vocab {
	return t.vocab
}

// Tokenize 返回 WordPiece 切分结果，不含特殊 token
func (t *Tokenizer) Tokenize(text string) []string {
	var pieces []string
	for _, word := range basicTokenize(text, t.opts.DoLowerCase) {
		pieces = append(pieces, t.wordPiece(word)...)
	}
	return pieces
}

// Encode 生成 [CLS] tokens [SEP] [PAD]... 形式的定长输入
func (t *Tokenizer) Encode(text string) Encoding {
	pieces := t.Tokenize(text)
	size := t.opts.MaxLength
	enc := Encoding{
		InputIDs:      make([]int, size),
		AttentionMask: make([]int, size),
	}
	if len(pieces) > size-2 {
		pieces = pieces[:size-2]
		enc.Truncated = true
	}

	n := 0
	put := func(id int) {
		enc.InputIDs[n] = id
		enc.AttentionMask[n] = 1
		n++
	}
	put(t.clsID)
	for _, p := range pieces {
		id, ok := t.vocab.ID(p)
		if !ok {
			id = t.unkID
		}
		put(id)
	}
	put(t.sepID)
	for ; n < size; n++ {
		enc.InputIDs[n] = t.padID
	}
	return enc
}

// wordPiece 贪心最长匹配，无法完整切分的词整体映射为 [UNK]
func (t *Tokenizer) wordPiece(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{UnkToken}
	}
	var out []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		cur := ""
		for start < end {
			sub := string(runes[start:end])
			if start > 0 {
				sub = continuationPrefix + sub
			}
			if _, ok := t.vocab.ID(sub); ok {
				cur = sub
				break
			}
			end--
		}
		if cur == "" {
			return []string{UnkToken}
		}
		out = append(out, cur)
		start = end
	}
	return out
}
