package workflow

import (
	"errors"
	"fmt"
)

// ErrBOMCycle BOM存在循环引用
var ErrBOMCycle = errors.New("BOM存在循环引用")

// maxBOMDepth 展开层级上限
const maxBOMDepth = 32

// Component BOM行
type Component struct {
	ProductID string
	Quantity  float64
	ScrapRate float64 // 百分比
}

// ComponentSource 返回产品默认BOM的行，没有BOM时返回 nil
type ComponentSource func(productID string) ([]Component, error)

// GrossQuantity 单位父件对该行的需求，含损耗
func GrossQuantity(c Component) float64 {
	return c.Quantity * (1 + c.ScrapRate/100)
}

// Explode 多级展开，返回每个物料的毛需求（中间件与底层件都累计）。
// 同一物料在不同分支出现时数量合并。
func Explode(rootID string, quantity float64, source ComponentSource) (map[string]float64, error) {
	reqs := make(map[string]float64)
	path := map[string]bool{rootID: true}
	if err := explode(rootID, quantity, source, path, 0, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func explode(productID string, quantity float64, source ComponentSource, path map[string]bool, depth int, reqs map[string]float64) error {
	if depth >= maxBOMDepth {
		return fmt.Errorf("%w: 层级超过 %d", ErrBOMCycle, maxBOMDepth)
	}
	components, err := source(productID)
	if err != nil {
		return err
	}
	for _, c := range components {
		if path[c.ProductID] {
			return fmt.Errorf("%w: %s", ErrBOMCycle, c.ProductID)
		}
		need := quantity * GrossQuantity(c)
		reqs[c.ProductID] += need

		path[c.ProductID] = true
		if err := explode(c.ProductID, need, source, path, depth+1, reqs); err != nil {
			return err
		}
		delete(path, c.ProductID)
	}
	return nil
}

// NetRequirement 净需求 = max(0, 毛需求 - 可用 - 在途)
func NetRequirement(required, available, onOrder float64) float64 {
	if n := required - available - onOrder; n > 0 {
		return n
	}
	return 0
}
