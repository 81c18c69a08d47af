package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/validation"
)

var (
	ErrStepBlocked   = errors.New("当前步骤存在错误，无法前进")
	ErrStepLocked    = errors.New("不能跳转到尚未到达的步骤")
	ErrLastStep      = errors.New("已经是最后一步")
	ErrUnknownStep   = errors.New("未知步骤")
	ErrMediaLimit    = errors.New("媒体数量已达上限")
	ErrMediaNotFound = errors.New("媒体不存在")
	ErrUnknownAction = errors.New("未知操作")
)

// StepBlockedError 前进被当前步骤的错误阻止
type StepBlockedError struct {
	Step   Step
	Issues []validation.Issue
}

func (e *StepBlockedError) Error() string {
	return fmt.Sprintf("步骤 %s 有 %d 个错误", e.Step, len(e.Issues))
}

func (e *StepBlockedError) Unwrap() error {
	return ErrStepBlocked
}

// ==================== 操作 ====================

// Action 对编辑状态的操作
type Action interface {
	actionName() string
}

// PatchAction 局部更新表单
type PatchAction struct{ Patch model.ListingPatch }

// AddPackageAction 新增套餐
type AddPackageAction struct{ Template model.Package }

// UpdatePackageAction 更新套餐
type UpdatePackageAction struct {
	ID    string
	Patch model.PackagePatch
}

// RemovePackageAction 删除套餐
type RemovePackageAction struct{ ID string }

// AttachMediaAction 追加已上传的媒体
type AttachMediaAction struct {
	Kind  model.MediaKind
	Items []model.MediaRef
}

// DetachMediaAction 移除媒体
type DetachMediaAction struct {
	Kind model.MediaKind
	ID   string
}

// NextStepAction 前进一步
type NextStepAction struct{}

// GoToStepAction 回到已到达的步骤
type GoToStepAction struct{ Step Step }

// LoadAction 用草稿覆盖状态
type LoadAction struct {
	Data    model.ListingDraftData
	Step    Step
	Version int64
}

func (PatchAction) actionName() string         { return "patch" }
func (AddPackageAction) actionName() string    { return "add_package" }
func (UpdatePackageAction) actionName() string { return "update_package" }
func (RemovePackageAction) actionName() string { return "remove_package" }
func (AttachMediaAction) actionName() string   { return "attach_media" }
func (DetachMediaAction) actionName() string   { return "detach_media" }
func (NextStepAction) actionName() string      { return "next_step" }
func (GoToStepAction) actionName() string      { return "goto_step" }
func (LoadAction) actionName() string          { return "load" }

// ==================== Reducer ====================

// Reduce 纯函数：出错时返回原状态，入参不会被修改
func Reduce(s State, a Action) (State, error) {
	switch act := a.(type) {
	case PatchAction:
		if err := act.Patch.CheckLimits(); err != nil {
			return s, err
		}
		if act.Patch.IsEmpty() {
			return s, nil
		}
		return s.withData(act.Patch.ApplyTo(s.Data)), nil

	case AddPackageAction:
		packages, err := s.Data.Packages.Add(act.Template)
		if err != nil {
			return s, err
		}
		return s.withPackages(packages), nil

	case UpdatePackageAction:
		packages, err := s.Data.Packages.Update(act.ID, act.Patch)
		if err != nil {
			return s, err
		}
		return s.withPackages(packages), nil

	case RemovePackageAction:
		packages, err := s.Data.Packages.Remove(act.ID)
		if err != nil {
			return s, err
		}
		return s.withPackages(packages), nil

	case AttachMediaAction:
		return attachMedia(s, act)

	case DetachMediaAction:
		return detachMedia(s, act)

	case NextStepAction:
		return nextStep(s)

	case GoToStepAction:
		if !act.Step.Valid() {
			return s, ErrUnknownStep
		}
		if act.Step > s.Current {
			return s, ErrStepLocked
		}
		s.Current = act.Step
		return s, nil

	case LoadAction:
		step := act.Step
		if !step.Valid() {
			step = StepBasicInfo
		}
		return State{
			Data:    act.Data.Clone(),
			Current: step,
			Reached: step,
			Version: act.Version,
		}, nil
	}
	return s, ErrUnknownAction
}

func (s State) withData(d model.ListingDraftData) State {
	s.Data = d
	s.Version++
	return s
}

func (s State) withPackages(p model.PackageSet) State {
	d := s.Data.Clone()
	d.Packages = p
	return s.withData(d)
}

func nextStep(s State) (State, error) {
	if s.Current >= StepReview {
		return s, ErrLastStep
	}
	result := validation.Validate(s.Data)
	if issues := result.ErrorsFor(s.Current.Fields()...); len(issues) > 0 {
		return s, &StepBlockedError{Step: s.Current, Issues: issues}
	}
	s.Current++
	if s.Current > s.Reached {
		s.Reached = s.Current
	}
	return s, nil
}

func attachMedia(s State, act AttachMediaAction) (State, error) {
	if !act.Kind.Valid() {
		return s, fmt.Errorf("未知媒体类型 %q", act.Kind)
	}
	if len(act.Items) == 0 {
		return s, nil
	}
	current := s.Data.Media.ByKind(act.Kind)
	if len(current)+len(act.Items) > act.Kind.Limit() {
		return s, fmt.Errorf("%w: %s 最多 %d 个", ErrMediaLimit, act.Kind, act.Kind.Limit())
	}

	d := s.Data.Clone()
	items := d.Media.ByKind(act.Kind)
	for _, item := range act.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		items = append(items, item)
	}
	d.Media = d.Media.WithKind(act.Kind, items)
	return s.withData(d), nil
}

func detachMedia(s State, act DetachMediaAction) (State, error) {
	current := s.Data.Media.ByKind(act.Kind)
	idx := -1
	for i, item := range current {
		if item.ID == act.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, ErrMediaNotFound
	}

	d := s.Data.Clone()
	items := d.Media.ByKind(act.Kind)
	items = append(items[:idx:idx], items[idx+1:]...)
	d.Media = d.Media.WithKind(act.Kind, items)
	return s.withData(d), nil
}
