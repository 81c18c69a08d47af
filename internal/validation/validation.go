// Package validation 商品表单校验：错误阻止前进和发布，警告只做提示
package validation

import (
	"fmt"
	"math"
	"strings"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/pkg/utils"
)

// Severity 问题级别
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue 单条校验问题
type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result 校验结果
type Result struct {
	Errors     []Issue `json:"errors"`
	Warnings   []Issue `json:"warnings"`
	Completion int     `json:"completion"`
}

// Valid 没有错误
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// ErrorsFor 返回字段属于任一前缀的错误；不传前缀返回全部
func (r Result) ErrorsFor(prefixes ...string) []Issue {
	return filterIssues(r.Errors, prefixes)
}

// WarningsFor 同 ErrorsFor
func (r Result) WarningsFor(prefixes ...string) []Issue {
	return filterIssues(r.Warnings, prefixes)
}

func filterIssues(issues []Issue, prefixes []string) []Issue {
	if len(prefixes) == 0 {
		return issues
	}
	var out []Issue
	for _, issue := range issues {
		for _, prefix := range prefixes {
			if MatchField(issue.Field, prefix) {
				out = append(out, issue)
				break
			}
		}
	}
	return out
}

// MatchField 字段路径是否属于前缀：packages 匹配 packages、packages[0].name；media 匹配 media.images
func MatchField(field, prefix string) bool {
	if field == prefix {
		return true
	}
	if !strings.HasPrefix(field, prefix) {
		return false
	}
	next := field[len(prefix)]
	return next == '.' || next == '['
}

// ==================== 校验 ====================

type collector struct {
	errors   []Issue
	warnings []Issue
}

func (c *collector) error(field, format string, args ...interface{}) {
	c.errors = append(c.errors, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (c *collector) warn(field, message string) {
	c.warnings = append(c.warnings, Issue{Field: field, Message: message, Severity: SeverityWarning})
}

// Validate 校验整个表单，纯函数
func Validate(d model.ListingDraftData) Result {
	c := &collector{}

	validateBasicInfo(c, d)
	validatePackages(c, d.Packages)
	validateRequirements(c, d)
	validateMedia(c, d.Media)
	validateSEO(c, d)

	return Result{
		Errors:     c.errors,
		Warnings:   c.warnings,
		Completion: Completion(d),
	}
}

func validateBasicInfo(c *collector, d model.ListingDraftData) {
	title := strings.TrimSpace(d.Title)
	switch n := utils.RuneLen(title); {
	case n == 0:
		c.error("title", "title is required")
	case n < model.MinTitleLen:
		c.error("title", "title must be at least %d characters", model.MinTitleLen)
	case n > model.MaxTitleLen:
		c.error("title", "title must be at most %d characters", model.MaxTitleLen)
	}

	if strings.TrimSpace(d.CategoryID) == "" {
		c.error("category_id", "category is required")
	}
	if strings.TrimSpace(d.SubcategoryID) == "" {
		c.error("subcategory_id", "subcategory is required")
	}

	switch n := utils.RuneLen(d.PlainDescription()); {
	case n < model.MinDescriptionLen:
		c.error("description", "description must be at least %d characters", model.MinDescriptionLen)
	case n > model.MaxDescriptionLen:
		c.error("description", "description must be at most %d characters", model.MaxDescriptionLen)
	}

	if len(d.Tags) > model.MaxTags {
		c.error("tags", "at most %d tags allowed", model.MaxTags)
	}
}

func validatePackages(c *collector, packages model.PackageSet) {
	if len(packages) == 0 {
		c.error("packages", "at least one package required")
		return
	}
	if len(packages) > model.MaxPackages {
		c.error("packages", "at most %d packages allowed", model.MaxPackages)
	}
	if packages.PopularCount() > 1 {
		c.error("packages", "only one package can be marked popular")
	}

	for i, p := range packages {
		field := func(name string) string {
			return fmt.Sprintf("packages[%d].%s", i, name)
		}
		if strings.TrimSpace(p.Name) == "" {
			c.error(field("name"), "package name is required")
		}
		if p.Price < 0 || math.IsNaN(p.Price) {
			c.error(field("price"), "price cannot be negative")
		}
		if p.DeliveryTimeDays < 1 {
			c.error(field("delivery_time_days"), "delivery time must be at least 1 day")
		}
		if p.Revisions < 0 {
			c.error(field("revisions"), "revisions cannot be negative")
		}
		if len(p.Features) > model.MaxFeatures {
			c.error(field("features"), "at most %d features allowed", model.MaxFeatures)
		}
	}
}

func validateRequirements(c *collector, d model.ListingDraftData) {
	if len(d.Requirements) == 0 {
		c.warn("requirements", "add buyer requirements so you can start work right away")
	}
	if len(d.Requirements) > model.MaxRequirements {
		c.error("requirements", "at most %d requirements allowed", model.MaxRequirements)
	}
	if len(d.Deliverables) > model.MaxDeliverables {
		c.error("deliverables", "at most %d deliverables allowed", model.MaxDeliverables)
	}
	if d.RevisionCount < 0 || d.RevisionCount > model.MaxRevisionCount {
		c.error("revision_count", "revision count must be between 0 and %d", model.MaxRevisionCount)
	}
}

func validateMedia(c *collector, m model.MediaSet) {
	if len(m.Images) == 0 {
		c.warn("media.images", "listings with images get more views")
	}
	kinds := []struct {
		field string
		kind  model.MediaKind
	}{
		{"media.images", model.MediaKindImage},
		{"media.videos", model.MediaKindVideo},
		{"media.documents", model.MediaKindDocument},
	}
	for _, k := range kinds {
		if len(m.ByKind(k.kind)) > k.kind.Limit() {
			c.error(k.field, "at most %d %ss allowed", k.kind.Limit(), k.kind)
		}
	}
}

func validateSEO(c *collector, d model.ListingDraftData) {
	if strings.TrimSpace(d.SEOTitle) == "" {
		c.warn("seo_title", "add an SEO title to improve search visibility")
	} else if utils.RuneLen(d.SEOTitle) > model.MaxSEOTitleLen {
		c.error("seo_title", "SEO title must be at most %d characters", model.MaxSEOTitleLen)
	}

	if strings.TrimSpace(d.SEODescription) == "" {
		c.warn("seo_description", "add an SEO description to improve search visibility")
	} else if utils.RuneLen(d.SEODescription) > model.MaxSEODescriptionLen {
		c.error("seo_description", "SEO description must be at most %d characters", model.MaxSEODescriptionLen)
	}

	if len(d.Keywords) > model.MaxKeywords {
		c.error("keywords", "at most %d keywords allowed", model.MaxKeywords)
	}
}
