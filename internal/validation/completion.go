package validation

import (
	"math"
	"strings"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/pkg/utils"
)

// Check 完成度检查项
type Check struct {
	Name string
	Done func(d model.ListingDraftData) bool
}

// Checks 完成度的 7 个检查项，顺序即展示顺序
var Checks = []Check{
	{"title", func(d model.ListingDraftData) bool {
		return utils.RuneLen(strings.TrimSpace(d.Title)) >= model.MinTitleLen
	}},
	{"category", func(d model.ListingDraftData) bool {
		return strings.TrimSpace(d.CategoryID) != "" && strings.TrimSpace(d.SubcategoryID) != ""
	}},
	{"description", func(d model.ListingDraftData) bool {
		return utils.RuneLen(d.PlainDescription()) >= model.MinDescriptionLen
	}},
	{"packages", func(d model.ListingDraftData) bool {
		return len(d.Packages) > 0
	}},
	{"images", func(d model.ListingDraftData) bool {
		return len(d.Media.Images) > 0
	}},
	{"seo", func(d model.ListingDraftData) bool {
		return strings.TrimSpace(d.SEOTitle) != "" && strings.TrimSpace(d.SEODescription) != ""
	}},
	{"requirements", func(d model.ListingDraftData) bool {
		return len(d.Requirements) > 0
	}},
}

// Completion 完成度百分比 0-100
func Completion(d model.ListingDraftData) int {
	done := 0
	for _, check := range Checks {
		if check.Done(d) {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(Checks)) * 100))
}

// Missing 未完成的检查项
func Missing(d model.ListingDraftData) []string {
	var out []string
	for _, check := range Checks {
		if !check.Done(d) {
			out = append(out, check.Name)
		}
	}
	return out
}
