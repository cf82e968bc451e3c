package bert

import "math"

// linear 是 PyTorch nn.Linear 布局的全连接层，weight 形状为 [out, in]
type linear struct {
	weight  []float32
	bias    []float32
	in, out int
}

// forward 对 rows 行输入计算 x·Wᵀ + b
func (l *linear) forward(x []float32, rows int) []float32 {
	y := make([]float32, rows*l.out)
	for r := 0; r < rows; r++ {
		xr := x[r*l.in : (r+1)*l.in]
		yr := y[r*l.out : (r+1)*l.out]
		for o := 0; o < l.out; o++ {
			yr[o] = l.bias[o] + dot(xr, l.weight[o*l.in:(o+1)*l.in])
		}
	}
	return y
}

type layerNorm struct {
	gamma []float32
	beta  []float32
	eps   float64
}

// apply 原地对每一行做归一化
func (n *layerNorm) apply(x []float32, rows, dim int) {
	for r := 0; r < rows; r++ {
		row := x[r*dim : (r+1)*dim]
		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(dim)
		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(dim)
		inv := 1 / math.Sqrt(variance+n.eps)
		for i, v := range row {
			row[i] = float32((float64(v)-mean)*inv)*n.gamma[i] + n.beta[i]
		}
	}
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func addInPlace(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// gelu 使用 erf 形式，与 BERT 原始实现一致
func gelu(x []float32) {
	for i, v := range x {
		f := float64(v)
		x[i] = float32(0.5 * f * (1 + math.Erf(f/math.Sqrt2)))
	}
}

func tanh(x []float32) {
	for i, v := range x {
		x[i] = float32(math.Tanh(float64(v)))
	}
}

// softmax 原地归一化
func softmax(x []float32) {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v - m))
		x[i] = float32(e)
		sum += e
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / sum)
	}
}
