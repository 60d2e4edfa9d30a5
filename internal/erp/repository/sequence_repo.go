package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// SequenceRepository 单据编号计数器仓库
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next 锁定 (prefix, day) 计数器行并返回下一个序号，必须在事务内调用。
// 计数器不存在时以 seed 返回的当天已用最大序号初始化。
func (r *SequenceRepository) Next(ctx context.Context, prefix, day string, seed func() (int, error)) (int, error) {
	db := r.db.WithContext(ctx)

	var seq entity.DocumentSequence
	err := db.Clauses(lockForUpdate()).
		Where("prefix = ? AND day = ?", prefix, day).
		First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		last, err := seed()
		if err != nil {
			return 0, err
		}
		seq = entity.DocumentSequence{Prefix: prefix, Day: day, LastValue: last + 1}
		if err := db.Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.LastValue, nil
	case err != nil:
		return 0, err
	}

	seq.LastValue++
	err = db.Model(&entity.DocumentSequence{}).
		Where("prefix = ? AND day = ?", prefix, day).
		Update("last_value", seq.LastValue).Error
	if err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}

// NumbersWithPrefix 返回表中以 prefix 开头的全部编号
func (r *SequenceRepository) NumbersWithPrefix(ctx context.Context, table, column, prefix string) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Table(table).
		Where(column+" LIKE ?", prefix+"%").
		Pluck(column, &numbers).Error
	return numbers, err
}
