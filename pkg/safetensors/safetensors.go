// Package safetensors 读取 safetensors 格式的模型参数文件。
//
// 文件布局：8 字节小端头部长度 N，N 字节 JSON 头部（张量名 -> dtype/shape/data_offsets），
// 之后是按小端存储的原始数据。
package safetensors

import (
	"encoding/binary"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const metadataKey = "__metadata__"

// 头部长度上限，防止损坏文件导致超大分配
const maxHeaderSize = 100 << 20

// Tensor 是解码为 float32 的张量
type Tensor struct {
	Name  string
	DType string
	Shape []int
	Data  []float32
}

// NumElements 返回张量元素个数
func (t *Tensor) NumElements() int {
	return numElements(t.Shape)
}

type entry struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// File 是已加载到内存的 safetensors 文件，张量按需解码
type File struct {
	entries  map[string]entry
	data     []byte
	Metadata map[string]string
}

// Load 读取并解析 path 指向的文件
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "解析 %s 失败", path)
	}
	return f, nil
}

// Parse 解析内存中的 safetensors 内容
func Parse(raw []byte) (*File, error) {
	if len(raw) < 8 {
		return nil, errors.New("safetensors: file too short")
	}
	n := binary.LittleEndian.Uint64(raw[:8])
	if n > maxHeaderSize || n > uint64(len(raw)-8) {
		return nil, errors.Errorf("safetensors: invalid header length %d", n)
	}
	header := raw[8 : 8+n]
	data := raw[8+n:]

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(header, &fields); err != nil {
		return nil, errors.Wrap(err, "safetensors: invalid header")
	}

	f := &File{
		entries: make(map[string]entry, len(fields)),
		data:    data,
	}
	for name, msg := range fields {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &f.Metadata); err != nil {
				return nil, errors.Wrap(err, "safetensors: invalid metadata")
			}
			continue
		}
		var e entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, errors.Wrapf(err, "safetensors: invalid entry %q", name)
		}
		if err := e.validate(len(data)); err != nil {
			return nil, errors.Wrapf(err, "safetensors: tensor %q", name)
		}
		f.entries[name] = e
	}
	return f, nil
}

func (e entry) validate(dataLen int) error {
	size, ok := dtypeSize(e.DType)
	if !ok {
		return errors.Errorf("unsupported dtype %s", e.DType)
	}
	begin, end := e.DataOffsets[0], e.DataOffsets[1]
	if begin < 0 || end < begin || end > dataLen {
		return errors.Errorf("data offsets [%d, %d] out of range (%d bytes)", begin, end, dataLen)
	}
	// 逐维相乘时检查溢出，避免构造的 shape 绕过长度校验
	want := size
	for _, d := range e.Shape {
		if d < 0 {
			return errors.Errorf("negative dimension in shape %v", e.Shape)
		}
		if d != 0 && want > math.MaxInt/d {
			return errors.Errorf("shape %v overflows the tensor size", e.Shape)
		}
		want *= d
	}
	if end-begin != want {
		return errors.Errorf("shape %v needs %d bytes, got %d", e.Shape, want, end-begin)
	}
	return nil
}

// Names 返回排序后的张量名
func (f *File) Names() []string {
	names := make([]string, 0, len(f.entries))
	for name := range f.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has 判断张量是否存在
func (f *File) Has(name string) bool {
	_, ok := f.entries[name]
	return ok
}

// Tensor 解码指定张量为 float32
func (f *File) Tensor(name string) (*Tensor, error) {
	e, ok := f.entries[name]
	if !ok {
		return nil, errors.Errorf("tensor %q not found", name)
	}
	buf := f.data[e.DataOffsets[0]:e.DataOffsets[1]]
	out := make([]float32, numElements(e.Shape))
	switch e.DType {
	case "F32":
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
	case "F16":
		for i := range out {
			out[i] = halfToFloat32(binary.LittleEndian.Uint16(buf[i*2:]))
		}
	case "BF16":
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(buf[i*2:])) << 16)
		}
	}
	shape := make([]int, len(e.Shape))
	copy(shape, e.Shape)
	return &Tensor{Name: name, DType: e.DType, Shape: shape, Data: out}, nil
}

func dtypeSize(dtype string) (int, bool) {
	switch dtype {
	case "F32":
		return 4, true
	case "F16", "BF16":
		return 2, true
	}
	return 0, false
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// halfToFloat32 将 IEEE 754 半精度转换为单精度
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// 非规格化数
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | e<<23 | mant<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
}
