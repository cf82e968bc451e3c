package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisRecord 表示 analysis_history 表中的一条分析记录
type AnalysisRecord struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`                   // UUID
	Text            string    `gorm:"type:text;not null" json:"text"`                 // 推文原文
	IsFakeNews      bool      `gorm:"column:is_fake_news" json:"isFakeNews"`          // 是否虚假
	ConfidenceScore float64   `gorm:"column:confidence_score" json:"confidenceScore"` // 置信度
	Timestamp       time.Time `gorm:"column:created_at;index" json:"timestamp"`       // 分析时间
}

// TableName 指定表名
func (AnalysisRecord) TableName() string {
	return "analysis_history"
}

// NewAnalysisRecord 根据分析结论生成一条新记录
func NewAnalysisRecord(text string, verdict *Verdict) *AnalysisRecord {
	return &AnalysisRecord{
		ID:              uuid.NewString(),
		Text:            text,
		IsFakeNews:      verdict.IsFakeNews,
		ConfidenceScore: verdict.ConfidenceScore,
		Timestamp:       time.Now(),
	}
}
