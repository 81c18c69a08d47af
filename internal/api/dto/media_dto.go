package dto

import "listing_studio_v1/internal/model"

// MediaUploadVO 单个文件上传结果
type MediaUploadVO struct {
	Filename string          `json:"filename"`
	Media    *model.MediaRef `json:"media,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// MediaUploadResponse 批量上传结果
type MediaUploadResponse struct {
	Results  []MediaUploadVO `json:"results"`
	Uploaded int             `json:"uploaded"`
	Failed   int             `json:"failed"`
	Session  *SessionView    `json:"session"`
}
