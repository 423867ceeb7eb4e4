package domain

import (
	"fmt"
	"strings"
)

// Product is one immutable row of the catalog.
type Product struct {
	ID          int64
	Name        string
	Series      string
	Craft       string
	Meaning     string
	PriceYuan   float64
	WeightG     float64
	Description string
}

// Source tells which retrieval tier produced a document.
type Source string

const (
	SourceVector   Source = "vector"
	SourceKeyword  Source = "keyword"
	SourceSentinel Source = "sentinel"
)

// Metadata accompanies every retrieved document.
type Metadata struct {
	ProductID  int64
	Score      int
	Similarity float64
	Source     Source
}

// Document is a per-query projection of catalog content.
type Document struct {
	Content  string
	Metadata Metadata
}

const (
	NoProductInfo     = "暂无相关产品信息"
	CatalogLoadFailed = "产品信息加载失败"
)

// Sentinel builds the placeholder returned when nothing relevant is found.
func Sentinel(content string) Document {
	return Document{Content: content, Metadata: Metadata{Source: SourceSentinel}}
}

// IsSentinel reports whether d is a placeholder rather than catalog content.
func (d Document) IsSentinel() bool { return d.Metadata.Source == SourceSentinel }

// Role identifies who spoke a turn.
type Role string

const (
	RoleSalesperson Role = "salesperson"
	RoleCustomer    Role = "customer"
)

// Turn is one utterance in a session transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RenderTurns formats turns as "role: content" lines.
func RenderTurns(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}

// EvaluationReport is the structured view of an evaluation text.
type EvaluationReport struct {
	Overall               float64  `json:"comprehensive_score"`
	DemandDiscovery       int      `json:"demand_mining_score"`
	ProductRecommendation int      `json:"product_recommendation_score"`
	ObjectionHandling     int      `json:"objection_handling_score"`
	TrustBuilding         int      `json:"trust_building_score"`
	Closing               int      `json:"closing_score"`
	Strengths             []string `json:"strengths"`
	Suggestions           []string `json:"suggestions"`
}
