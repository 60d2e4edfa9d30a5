package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService 技术文档
type DocumentService struct {
	base
	objects storage.ObjectStorage
}

func NewDocumentService(b base, objects storage.ObjectStorage) *DocumentService {
	return &DocumentService{base: b, objects: objects}
}

// SetStorage 注入对象存储
func (s *DocumentService) SetStorage(objects storage.ObjectStorage) {
	s.objects = objects
}

// UploadInput 上传参数，文件内容由处理器从 multipart 读取
type UploadInput struct {
	Title       string
	DocType     string
	ProductID   string
	Version     string
	Description string
	FileName    string
	ContentType string
	Size        int64
}

func (s *DocumentService) store() (storage.ObjectStorage, error) {
	if s.objects == nil {
		return nil, newError(ErrUnavailable, "文件存储未配置")
	}
	return s.objects, nil
}

func (s *DocumentService) List(ctx context.Context, p repository.ListParams) (*Page[entity.TechnicalDocument], error) {
	list, total, err := s.repos.Document.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *DocumentService) Get(ctx context.Context, id string) (*entity.TechnicalDocument, error) {
	doc, err := s.repos.Document.FindByID(ctx, id)
	return doc, translate(err, "文档")
}

// Upload 保存文件到对象存储并登记文档。登记失败时删除已上传的对象。
func (s *DocumentService) Upload(ctx context.Context, userID string, in UploadInput, file io.Reader) (*entity.TechnicalDocument, error) {
	objects, err := s.store()
	if err != nil {
		return nil, err
	}
	if in.ProductID != "" {
		if _, err := s.repos.Product.FindByID(ctx, in.ProductID); err != nil {
			return nil, translate(err, "产品")
		}
	}

	objectKey := fmt.Sprintf("documents/%s/%s%s", time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(in.FileName))
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := objects.Put(ctx, objectKey, file, in.Size, contentType); err != nil {
		s.logger.Error("document upload failed", zap.String("key", objectKey), zap.Error(err))
		return nil, newError(ErrUnavailable, "文件上传失败")
	}

	doc := &entity.TechnicalDocument{
		ID:          uuid.New().String(),
		Title:       in.Title,
		DocType:     in.DocType,
		ProductID:   ref(in.ProductID),
		FileName:    in.FileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		FileSize:    in.Size,
		Version:     in.Version,
		Description: in.Description,
		UploadedBy:  userID,
	}
	if doc.Title == "" {
		doc.Title = in.FileName
	}
	if doc.Version == "" {
		doc.Version = "1.0"
	}
	if err := s.repos.Document.Create(ctx, doc); err != nil {
		if rmErr := objects.Remove(ctx, objectKey); rmErr != nil {
			s.logger.Warn("remove orphan object failed", zap.String("key", objectKey), zap.Error(rmErr))
		}
		return nil, translate(err, "文档")
	}
	return doc, nil
}

// Download 返回文档记录和文件内容，调用方负责关闭
func (s *DocumentService) Download(ctx context.Context, id string) (*entity.TechnicalDocument, io.ReadCloser, error) {
	objects, err := s.store()
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.repos.Document.FindByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "文档")
	}
	rc, err := objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		s.logger.Error("document download failed", zap.String("key", doc.ObjectKey), zap.Error(err))
		return nil, nil, newError(ErrUnavailable, "文件读取失败")
	}
	return doc, rc, nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	objects, err := s.store()
	if err != nil {
		return err
	}
	doc, err := s.repos.Document.FindByID(ctx, id)
	if err != nil {
		return translate(err, "文档")
	}
	if err := s.repos.Document.Delete(ctx, id); err != nil {
		return err
	}
	if err := objects.Remove(ctx, doc.ObjectKey); err != nil {
		s.logger.Warn("remove document object failed", zap.String("key", doc.ObjectKey), zap.Error(err))
	}
	return nil
}
