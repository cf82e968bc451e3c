package safetensors

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Write 以 F32 格式写出张量，张量按名称排序存放
func Write(w io.Writer, tensors []*Tensor, metadata map[string]string) error {
	sorted := make([]*Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]any, len(sorted)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	offset := 0
	for _, t := range sorted {
		if t.NumElements() != len(t.Data) {
			return errors.Errorf("safetensors: tensor %q has shape %v but %d values", t.Name, t.Shape, len(t.Data))
		}
		if _, dup := header[t.Name]; dup {
			return errors.Errorf("safetensors: duplicate tensor %q", t.Name)
		}
		size := len(t.Data) * 4
		header[t.Name] = entry{DType: "F32", Shape: t.Shape, DataOffsets: [2]int{offset, offset + size}}
		offset += size
	}
	hdr, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "safetensors: encode header")
	}
	// 头部按 8 字节对齐
	if pad := len(hdr) % 8; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte(" "), 8-pad)...)
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(hdr)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, t := range sorted {
		for _, v := range t.Data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFile 将张量写入 path
func WriteFile(path string, tensors []*Tensor, metadata map[string]string) error {
	var buf bytes.Buffer
	if err := Write(&buf, tensors, metadata); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
