package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"listing_studio_v1/pkg/utils"
)

var (
	ErrPackageLimit     = errors.New("套餐数量已达上限")
	ErrPackageNotFound  = errors.New("套餐不存在")
	ErrFeatureLimit     = errors.New("套餐特性数量超出上限")
	ErrDuplicatePackage = errors.New("套餐 ID 重复")
)

// Package 定价套餐
type Package struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Price            float64  `json:"price"`
	DeliveryTimeDays int      `json:"delivery_time_days"`
	Revisions        int      `json:"revisions"`
	Features         []string `json:"features"`
	IsPopular        bool     `json:"is_popular"`
}

// PackagePatch 套餐局部更新
type PackagePatch struct {
	Name             *string   `json:"name,omitempty"`
	Description      *string   `json:"description,omitempty"`
	Price            *float64  `json:"price,omitempty"`
	DeliveryTimeDays *int      `json:"delivery_time_days,omitempty"`
	Revisions        *int      `json:"revisions,omitempty"`
	Features         *[]string `json:"features,omitempty"`
	IsPopular        *bool     `json:"is_popular,omitempty"`
}

// PackageSet 套餐集合（写时复制，任何操作都不修改接收者）
//   - 最多 MaxPackages 个
//   - 最多一个 popular
type PackageSet []Package

// Clone 深拷贝
func (s PackageSet) Clone() PackageSet {
	if s == nil {
		return nil
	}
	out := make(PackageSet, len(s))
	for i, p := range s {
		out[i] = p
		out[i].Features = cloneStrings(p.Features)
	}
	return out
}

// Add 追加套餐，ID 为空时自动生成；新套餐为 popular 时清除其它标记
func (s PackageSet) Add(tmpl Package) (PackageSet, error) {
	if len(s) >= MaxPackages {
		return s, ErrPackageLimit
	}
	features := utils.CompactList(tmpl.Features)
	if len(features) > MaxFeatures {
		return s, ErrFeatureLimit
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	} else if s.indexOf(tmpl.ID) >= 0 {
		return s, ErrDuplicatePackage
	}
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	tmpl.Features = features

	out := s.Clone()
	if tmpl.IsPopular {
		for i := range out {
			out[i].IsPopular = false
		}
	}
	return append(out, tmpl), nil
}

// Remove 删除套餐
func (s PackageSet) Remove(id string) (PackageSet, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return s, ErrPackageNotFound
	}
	out := make(PackageSet, 0, len(s)-1)
	out = append(out, s[:idx].Clone()...)
	out = append(out, s[idx+1:].Clone()...)
	return out, nil
}

// Update 更新套餐；设为 popular 时在同一个返回值里清除其它标记
func (s PackageSet) Update(id string, patch PackagePatch) (PackageSet, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return s, ErrPackageNotFound
	}
	var features []string
	if patch.Features != nil {
		features = utils.CompactList(*patch.Features)
		if len(features) > MaxFeatures {
			return s, ErrFeatureLimit
		}
	}

	out := s.Clone()
	p := &out[idx]
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.DeliveryTimeDays != nil {
		p.DeliveryTimeDays = *patch.DeliveryTimeDays
	}
	if patch.Revisions != nil {
		p.Revisions = *patch.Revisions
	}
	if patch.Features != nil {
		p.Features = features
	}
	if patch.IsPopular != nil {
		if *patch.IsPopular {
			for i := range out {
				out[i].IsPopular = i == idx
			}
		} else {
			p.IsPopular = false
		}
	}
	return out, nil
}

// Get 按 ID 查找
func (s PackageSet) Get(id string) (Package, bool) {
	if idx := s.indexOf(id); idx >= 0 {
		return s[idx], true
	}
	return Package{}, false
}

// PopularCount popular 套餐数量（正常情况下不超过 1）
func (s PackageSet) PopularCount() int {
	n := 0
	for _, p := range s {
		if p.IsPopular {
			n++
		}
	}
	return n
}

func (s PackageSet) indexOf(id string) int {
	for i, p := range s {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// DefaultPackageTemplates 默认套餐模板 Basic / Standard / Premium
func DefaultPackageTemplates() []Package {
	return []Package{
		{
			Name:             "Basic",
			Description:      "Essential delivery for small projects",
			Price:            25,
			DeliveryTimeDays: 5,
			Revisions:        1,
			Features:         []string{"1 concept", "Source file"},
		},
		{
			Name:             "Standard",
			Description:      "The most requested option",
			Price:            60,
			DeliveryTimeDays: 3,
			Revisions:        3,
			Features:         []string{"3 concepts", "Source file", "High resolution"},
			IsPopular:        true,
		},
		{
			Name:             "Premium",
			Description:      "Full service with priority support",
			Price:            120,
			DeliveryTimeDays: 2,
			Revisions:        MaxRevisionCount,
			Features:         []string{"5 concepts", "Source file", "High resolution", "Priority support", "Commercial use"},
		},
	}
}

// PackageTemplate 按 key（basic/standard/premium）取模板
func PackageTemplate(key string) (Package, bool) {
	for _, p := range DefaultPackageTemplates() {
		if strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return Package{}, false
}
