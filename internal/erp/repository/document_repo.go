package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// DocumentRepository 技术文档仓库
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindAll 查询文档列表，Status 为文档类型过滤
func (r *DocumentRepository) FindAll(ctx context.Context, p ListParams) ([]entity.TechnicalDocument, int64, error) {
	var list []entity.TechnicalDocument
	query := r.db.WithContext(ctx).Model(&entity.TechnicalDocument{})
	query = eq(query, "product_id", p.ProductID)
	query = eq(query, "doc_type", p.Status)
	query = keyword(query, p.Keyword, "title", "file_name")
	total, err := paginate(query, p, &list, "created_at DESC")
	return list, total, err
}

func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*entity.TechnicalDocument, error) {
	var doc entity.TechnicalDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.TechnicalDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.TechnicalDocument{}).Error
}
