package editor

import "listing_studio_v1/internal/validation"

// StepStatus 步骤状态，全部由校验结果推导
type StepStatus struct {
	Step        Step   `json:"-"`
	Key         string `json:"key"`
	Index       int    `json:"index"`
	IsCurrent   bool   `json:"is_current"`
	IsCompleted bool   `json:"is_completed"`
	IsValid     bool   `json:"is_valid"`
	HasError    bool   `json:"has_error"`
	ErrorCount  int    `json:"error_count"`
	WarnCount   int    `json:"warning_count"`
}

// Statuses 计算每个步骤的状态
func Statuses(s State, r validation.Result) []StepStatus {
	out := make([]StepStatus, 0, len(Steps))
	for _, step := range Steps {
		fields := step.Fields()
		errs := len(r.ErrorsFor(fields...))
		visited := step <= s.Reached
		valid := errs == 0
		out = append(out, StepStatus{
			Step:        step,
			Key:         step.String(),
			Index:       int(step),
			IsCurrent:   step == s.Current,
			IsCompleted: step < s.Reached && valid,
			IsValid:     valid,
			HasError:    visited && !valid,
			ErrorCount:  errs,
			WarnCount:   len(r.WarningsFor(fields...)),
		})
	}
	return out
}

// Progress 进度 0-1：已完成步骤数，当前步骤未完成时再加半步
func Progress(statuses []StepStatus) float64 {
	if len(statuses) == 0 {
		return 0
	}
	completed := 0.0
	for _, st := range statuses {
		if st.IsCompleted {
			completed++
		}
		if st.IsCurrent && !st.IsCompleted {
			completed += 0.5
		}
	}
	return completed / float64(len(statuses))
}
