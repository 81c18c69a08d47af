package editor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/validation"
)

func str(s string) *string { return &s }

// validBasicInfo 填满 BasicInfo 步骤
func validBasicInfo() model.ListingPatch {
	return model.ListingPatch{
		Title:         str("Professional logo design"),
		CategoryID:    str("design"),
		SubcategoryID: str("logo"),
		Description:   str(strings.Repeat("a", 120)),
	}
}

func mustReduce(t *testing.T, s State, a Action) State {
	t.Helper()
	next, err := Reduce(s, a)
	require.NoError(t, err)
	return next
}

func TestReduce_Patch(t *testing.T) {
	s := InitialState()
	next := mustReduce(t, s, PatchAction{Patch: model.ListingPatch{Title: str("Logo")}})

	assert.Equal(t, "Logo", next.Data.Title)
	assert.Equal(t, int64(1), next.Version)
	assert.Equal(t, "", s.Data.Title, "input state must not change")

	// 超限整体拒绝
	long := strings.Repeat("x", 81)
	same, err := Reduce(next, PatchAction{Patch: model.ListingPatch{Title: &long, CategoryID: str("design")}})
	assert.True(t, errors.Is(err, model.ErrFieldLimit))
	assert.Equal(t, next, same)
	assert.Equal(t, "", same.Data.CategoryID)

	// 空更新不增加版本
	again := mustReduce(t, next, PatchAction{})
	assert.Equal(t, next.Version, again.Version)
}

func TestReduce_NextBlockedByErrors(t *testing.T) {
	s := InitialState()
	_, err := Reduce(s, NextStepAction{})

	var blocked *StepBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.True(t, errors.Is(err, ErrStepBlocked))
	assert.Equal(t, StepBasicInfo, blocked.Step)
	for _, issue := range blocked.Issues {
		assert.NotEqual(t, "packages", issue.Field, "only current step fields block")
	}
}

func TestReduce_NextIgnoresWarnings(t *testing.T) {
	s := mustReduce(t, InitialState(), PatchAction{Patch: validBasicInfo()})
	s = mustReduce(t, s, NextStepAction{})
	assert.Equal(t, StepPricing, s.Current)

	s = mustReduce(t, s, AddPackageAction{Template: model.Package{Name: "Basic", Price: 10, DeliveryTimeDays: 2}})
	s = mustReduce(t, s, NextStepAction{})
	assert.Equal(t, StepRequirements, s.Current)

	// requirements 为空只是警告
	s = mustReduce(t, s, NextStepAction{})
	assert.Equal(t, StepMedia, s.Current)
	assert.Equal(t, StepMedia, s.Reached)
}

func TestReduce_GoTo(t *testing.T) {
	s := mustReduce(t, InitialState(), PatchAction{Patch: validBasicInfo()})
	s = mustReduce(t, s, NextStepAction{})

	_, err := Reduce(s, GoToStepAction{Step: StepSEO})
	assert.ErrorIs(t, err, ErrStepLocked)

	_, err = Reduce(s, GoToStepAction{Step: Step(42)})
	assert.ErrorIs(t, err, ErrUnknownStep)

	back := mustReduce(t, s, GoToStepAction{Step: StepBasicInfo})
	assert.Equal(t, StepBasicInfo, back.Current)
	assert.Equal(t, StepPricing, back.Reached)

	// 回退后不能再跳到已到达的后续步骤，只能逐步前进
	_, err = Reduce(back, GoToStepAction{Step: StepPricing})
	assert.ErrorIs(t, err, ErrStepLocked)
}

func TestReduce_LastStep(t *testing.T) {
	s := InitialState()
	s.Current, s.Reached = StepReview, StepReview
	_, err := Reduce(s, NextStepAction{})
	assert.ErrorIs(t, err, ErrLastStep)
}

func TestReduce_Packages(t *testing.T) {
	s := InitialState()
	for _, tmpl := range model.DefaultPackageTemplates() {
		s = mustReduce(t, s, AddPackageAction{Template: tmpl})
	}
	require.Len(t, s.Data.Packages, 3)

	_, err := Reduce(s, AddPackageAction{Template: model.Package{Name: "Extra"}})
	assert.ErrorIs(t, err, model.ErrPackageLimit)

	popular := true
	s = mustReduce(t, s, UpdatePackageAction{ID: s.Data.Packages[2].ID, Patch: model.PackagePatch{IsPopular: &popular}})
	assert.Equal(t, 1, s.Data.Packages.PopularCount())
	assert.True(t, s.Data.Packages[2].IsPopular)

	s = mustReduce(t, s, RemovePackageAction{ID: s.Data.Packages[2].ID})
	assert.Len(t, s.Data.Packages, 2)
	assert.Equal(t, 0, s.Data.Packages.PopularCount())
}

func TestReduce_Media(t *testing.T) {
	s := InitialState()
	items := make([]model.MediaRef, model.MaxVideos)
	for i := range items {
		items[i] = model.MediaRef{URL: "https://cdn.example.com/v.mp4"}
	}
	s = mustReduce(t, s, AttachMediaAction{Kind: model.MediaKindVideo, Items: items})
	require.Len(t, s.Data.Media.Videos, 3)
	assert.NotEmpty(t, s.Data.Media.Videos[0].ID)

	_, err := Reduce(s, AttachMediaAction{Kind: model.MediaKindVideo, Items: items[:1]})
	assert.ErrorIs(t, err, ErrMediaLimit)

	id := s.Data.Media.Videos[1].ID
	next := mustReduce(t, s, DetachMediaAction{Kind: model.MediaKindVideo, ID: id})
	assert.Len(t, next.Data.Media.Videos, 2)
	assert.Len(t, s.Data.Media.Videos, 3)

	_, err = Reduce(next, DetachMediaAction{Kind: model.MediaKindVideo, ID: id})
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestReduce_Load(t *testing.T) {
	data := model.NewListingDraftData()
	data.Title = "Restored"
	s := mustReduce(t, InitialState(), LoadAction{Data: data, Step: StepMedia, Version: 7})

	assert.Equal(t, StepMedia, s.Current)
	assert.Equal(t, StepMedia, s.Reached)
	assert.Equal(t, int64(7), s.Version)
	assert.Equal(t, "Restored", s.Data.Title)
}

func TestStatusesAndProgress(t *testing.T) {
	s := InitialState()
	statuses := Statuses(s, validation.Validate(s.Data))
	require.Len(t, statuses, 6)
	assert.True(t, statuses[0].IsCurrent)
	assert.True(t, statuses[0].HasError)
	assert.False(t, statuses[1].HasError, "unvisited steps never show errors")
	for _, st := range statuses {
		assert.False(t, st.IsCompleted)
	}
	assert.InDelta(t, 0.5/6, Progress(statuses), 1e-9)

	s = mustReduce(t, s, PatchAction{Patch: validBasicInfo()})
	s = mustReduce(t, s, NextStepAction{})
	statuses = Statuses(s, validation.Validate(s.Data))
	assert.True(t, statuses[0].IsCompleted)
	assert.True(t, statuses[1].IsCurrent)
	assert.True(t, statuses[1].HasError)
	assert.InDelta(t, 1.5/6, Progress(statuses), 1e-9)

	// 回到第一步：第一步已完成，不再加半步
	s = mustReduce(t, s, GoToStepAction{Step: StepBasicInfo})
	statuses = Statuses(s, validation.Validate(s.Data))
	assert.True(t, statuses[0].IsCurrent)
	assert.True(t, statuses[0].IsCompleted)
	assert.InDelta(t, 1.0/6, Progress(statuses), 1e-9)

	// 清空标题后第一步不再完成
	s = mustReduce(t, s, PatchAction{Patch: model.ListingPatch{Title: str("")}})
	statuses = Statuses(s, validation.Validate(s.Data))
	assert.False(t, statuses[0].IsCompleted)
	assert.True(t, statuses[0].HasError)
}

func TestParseStep(t *testing.T) {
	step, ok := ParseStep("seo")
	assert.True(t, ok)
	assert.Equal(t, StepSEO, step)
	_, ok = ParseStep("checkout")
	assert.False(t, ok)
}
