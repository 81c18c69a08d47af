// Package editor 编辑会话的内存状态：表单、当前步骤和版本号
package editor

import "listing_studio_v1/internal/model"

// Step 编辑步骤
type Step int

const (
	StepBasicInfo Step = iota
	StepPricing
	StepRequirements
	StepMedia
	StepSEO
	StepReview
)

// Steps 全部步骤，按顺序
var Steps = []Step{StepBasicInfo, StepPricing, StepRequirements, StepMedia, StepSEO, StepReview}

var stepNames = map[Step]string{
	StepBasicInfo:    "basic_info",
	StepPricing:      "pricing",
	StepRequirements: "requirements",
	StepMedia:        "media",
	StepSEO:          "seo",
	StepReview:       "review",
}

// 每个步骤负责的字段前缀，Review 负责全部字段
var stepFields = map[Step][]string{
	StepBasicInfo:    {"title", "category_id", "subcategory_id", "description", "tags"},
	StepPricing:      {"packages"},
	StepRequirements: {"requirements", "deliverables", "revision_count"},
	StepMedia:        {"media"},
	StepSEO:          {"seo_title", "seo_description", "keywords"},
	StepReview:       nil,
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid 是否为已知步骤
func (s Step) Valid() bool {
	return s >= StepBasicInfo && s <= StepReview
}

// Fields 步骤负责的字段前缀；nil 表示全部字段
func (s Step) Fields() []string {
	return stepFields[s]
}

// ParseStep 按名称解析步骤
func ParseStep(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}

// State 编辑状态快照，调用方拿到的总是副本
type State struct {
	Data    model.ListingDraftData `json:"data"`
	Current Step                   `json:"current_step"`
	Reached Step                   `json:"reached_step"` // 到达过的最远步骤
	Version int64                  `json:"version"`      // 表单每次变化加一
}

// InitialState 新会话的初始状态
func InitialState() State {
	return State{Data: model.NewListingDraftData(), Current: StepBasicInfo}
}

// Clone 深拷贝
func (s State) Clone() State {
	s.Data = s.Data.Clone()
	return s
}
