package tokenizer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Vocab 是 WordPiece 词表，token 的 id 为其在 vocab.txt 中的行号
type Vocab struct {
	ids    map[string]int
	tokens []string
}

// LoadVocab 读取 vocab.txt
func LoadVocab(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "打开词表失败")
	}
	defer f.Close()
	v, err := ReadVocab(f)
	if err != nil {
		return nil, errors.Wrapf(err, "读取词表 %s 失败", path)
	}
	return v, nil
}

// ReadVocab 从 r 逐行读取词表
func ReadVocab(r io.Reader) (*Vocab, error) {
	v := &Vocab{ids: make(map[string]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		token := strings.TrimRight(sc.Text(), "\r")
		v.ids[token] = len(v.tokens)
		v.tokens = append(v.tokens, token)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(v.tokens) == 0 {
		return nil, errors.New("empty vocabulary")
	}
	return v, nil
}

// Size 返回词表大小
func (v *Vocab) Size() int {
	return len(v.tokens)
}

// ID 查询 token 的 id
func (v *Vocab) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token 返回 id 对应的 token
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}
