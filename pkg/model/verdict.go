package model

// Verdict 是单次分析的结论
type Verdict struct {
	IsFakeNews      bool    `json:"isFakeNews"`
	ConfidenceScore float64 `json:"confidenceScore"` // 虚假类别的概率，取值 [0,1]
}

// ErrorResult 是分析失败时输出的错误对象，与 Verdict 互斥
type ErrorResult struct {
	Error string `json:"error"`
}
