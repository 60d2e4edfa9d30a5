package entity

import (
	"time"
)

// TechnicalDocument 技术文档（文件存储于对象存储）
type TechnicalDocument struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	DocType     string    `json:"doc_type" gorm:"size:50"`
	ProductID   *string   `json:"product_id" gorm:"type:uuid;index"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	ObjectKey   string    `json:"object_key" gorm:"size:500;not null"`
	ContentType string    `json:"content_type" gorm:"size:100"`
	FileSize    int64     `json:"file_size"`
	Version     string    `json:"version" gorm:"size:20;default:1.0"`
	Description string    `json:"description" gorm:"type:text"`
	UploadedBy  string    `json:"uploaded_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (TechnicalDocument) TableName() string {
	return "erp_technical_documents"
}

// DocumentSequence 单据编号计数器，按前缀和日期分段
type DocumentSequence struct {
	Prefix    string    `json:"prefix" gorm:"primaryKey;size:10"`
	Day       string    `json:"day" gorm:"primaryKey;size:8"`
	LastValue int       `json:"last_value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DocumentSequence) TableName() string {
	return "erp_document_sequences"
}
