// Package seo 搜索可见度评分，纯函数，同样的输入总是得到同样的结果
package seo

import (
	"fmt"
	"math"
	"strings"

	"listing_studio_v1/internal/model"
	"listing_studio_v1/pkg/utils"
)

// Band 长度区间与权重
type Band struct {
	Min        int
	Max        int
	OptimalMin int
	OptimalMax int
	Weight     int
}

var (
	TitleBand       = Band{Min: 30, Max: 60, OptimalMin: 40, OptimalMax: 55, Weight: 40}
	DescriptionBand = Band{Min: 120, Max: 160, OptimalMin: 140, OptimalMax: 155, Weight: 40}
)

const (
	KeywordWeight        = 20
	PointsPerKeyword     = 5
	RecommendedKeywords  = KeywordWeight / PointsPerKeyword
	TargetSentenceLength = 20
	ReadabilityPenalty   = 2
)

// FieldAnalysis 标题/描述的分析结果
type FieldAnalysis struct {
	Length      int      `json:"length"`
	Optimal     bool     `json:"optimal"`
	InRange     bool     `json:"in_range"`
	Score       int      `json:"score"`
	MaxScore    int      `json:"max_score"`
	Suggestions []string `json:"suggestions"`
}

// KeywordAnalysis 关键词分析结果
type KeywordAnalysis struct {
	Count       int      `json:"count"`
	Density     float64  `json:"density"`
	Score       int      `json:"score"`
	MaxScore    int      `json:"max_score"`
	Suggestions []string `json:"suggestions"`
}

// Analysis 总体分析
type Analysis struct {
	Score       int             `json:"score"`
	Title       FieldAnalysis   `json:"title"`
	Description FieldAnalysis   `json:"description"`
	Keywords    KeywordAnalysis `json:"keywords"`
	Readability int             `json:"readability"`
	Suggestions []string        `json:"suggestions"`
}

// Analyze 对标题、描述和关键词评分，总分 0-100
// 可读性单独给出，不计入总分
func Analyze(title, description string, keywords []string) Analysis {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	keywords = utils.NormalizeSet(keywords)

	a := Analysis{
		Title:       analyzeField("title", title, TitleBand),
		Description: analyzeField("description", description, DescriptionBand),
		Keywords:    analyzeKeywords(title+" "+description, keywords),
		Readability: Readability(description),
	}
	a.Score = a.Title.Score + a.Description.Score + a.Keywords.Score

	a.Suggestions = append(a.Suggestions, a.Title.Suggestions...)
	a.Suggestions = append(a.Suggestions, a.Description.Suggestions...)
	a.Suggestions = append(a.Suggestions, a.Keywords.Suggestions...)
	if description != "" && a.Readability < 60 {
		a.Suggestions = append(a.Suggestions, fmt.Sprintf("aim for sentences of about %d characters to improve readability", TargetSentenceLength))
	}
	return a
}

// AnalyzeListing 用表单的 SEO 字段评分，未填写时退回标题和纯文本描述
func AnalyzeListing(d model.ListingDraftData) Analysis {
	title := d.SEOTitle
	if strings.TrimSpace(title) == "" {
		title = d.Title
	}
	description := d.SEODescription
	if strings.TrimSpace(description) == "" {
		description = d.PlainDescription()
	}
	return Analyze(title, description, d.Keywords)
}

func analyzeField(name, value string, band Band) FieldAnalysis {
	n := utils.RuneLen(value)
	fa := FieldAnalysis{
		Length:   n,
		MaxScore: band.Weight,
		Optimal:  n >= band.OptimalMin && n <= band.OptimalMax,
		InRange:  n >= band.Min && n <= band.Max,
	}

	switch {
	case n == 0:
		fa.Suggestions = append(fa.Suggestions, fmt.Sprintf("add a %s of %d-%d characters", name, band.OptimalMin, band.OptimalMax))
	case fa.Optimal:
		fa.Score = band.Weight
	case fa.InRange:
		fa.Score = int(math.Round(float64(band.Weight) * 0.625))
	default:
		fa.Score = int(math.Round(float64(band.Weight) * 0.25))
	}

	if n > 0 && !fa.Optimal {
		if n < band.OptimalMin {
			fa.Suggestions = append(fa.Suggestions, fmt.Sprintf("%s is too short (%d characters); aim for %d-%d", name, n, band.OptimalMin, band.OptimalMax))
		} else {
			fa.Suggestions = append(fa.Suggestions, fmt.Sprintf("%s is too long (%d characters); aim for %d-%d", name, n, band.OptimalMin, band.OptimalMax))
		}
	}
	return fa
}

func analyzeKeywords(text string, keywords []string) KeywordAnalysis {
	ka := KeywordAnalysis{
		Count:    len(keywords),
		MaxScore: KeywordWeight,
		Density:  Density(text, keywords),
	}
	ka.Score = ka.Count * PointsPerKeyword
	if ka.Score > KeywordWeight {
		ka.Score = KeywordWeight
	}

	if ka.Count < RecommendedKeywords {
		ka.Suggestions = append(ka.Suggestions, fmt.Sprintf("add at least %d keywords (currently %d)", RecommendedKeywords, ka.Count))
	}
	if ka.Count > 0 && ka.Density == 0 {
		ka.Suggestions = append(ka.Suggestions, "use your keywords in the title or description")
	}
	return ka
}

// Density 关键词出现次数 / 总词数 × 100，保留两位小数
func Density(text string, keywords []string) float64 {
	words := utils.Words(strings.ToLower(text))
	if len(words) == 0 || len(keywords) == 0 {
		return 0
	}

	occurrences := 0
	for _, kw := range keywords {
		occurrences += countPhrase(words, utils.Words(strings.ToLower(kw)))
	}
	density := float64(occurrences) / float64(len(words)) * 100
	return math.Round(density*100) / 100
}

func countPhrase(words, phrase []string) int {
	if len(phrase) == 0 {
		return 0
	}
	n := 0
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, w := range phrase {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// Readability max(0, 100 - 2*|平均句长 - 20|)，句长按字符计
func Readability(text string) int {
	sentences := utils.Sentences(text)
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += utils.RuneLen(s)
	}
	avg := float64(total) / float64(len(sentences))
	score := 100 - ReadabilityPenalty*math.Abs(avg-TargetSentenceLength)
	if score < 0 {
		return 0
	}
	return int(math.Round(score))
}
