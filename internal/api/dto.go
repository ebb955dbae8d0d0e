package api

import (
	"github.com/starford/tidy/internal/journal"
	"github.com/starford/tidy/internal/models"
	"github.com/starford/tidy/internal/organizer"
	"github.com/starford/tidy/internal/tidyservice"
)

// RuleRequest is the request body for adding or updating a rule.
type RuleRequest struct {
	Keyword string `json:"keyword" example:"fattura" validate:"required"`
	Folder  string `json:"folder" example:"Documenti/Fatture" validate:"required"`
}

// RemoveRulesRequest is the request body for deleting rules. Confirm must be
// true; the client is expected to have asked the user.
type RemoveRulesRequest struct {
	Indices []int `json:"indices" validate:"required"`
	Confirm bool  `json:"confirm" example:"true"`
}

// TargetRequest names the folder to organize.
type TargetRequest struct {
	Path string `json:"path" example:"/home/me/Downloads"`
}

// StatusResponse is the organizer snapshot (aliased from the domain layer).
type StatusResponse = organizer.Status

// RuleListResponse wraps the ordered rule list.
type RuleListResponse struct {
	Rules []models.Rule `json:"rules" validate:"required"`
}

// RuleResponse is a single rule with its position.
type RuleResponse struct {
	Index int `json:"index" example:"2"`
	models.Rule
}

// ClassifyResponse is the dry-run destination of a file name.
type ClassifyResponse = tidyservice.Classification

// BucketListResponse wraps the fallback buckets.
type BucketListResponse struct {
	Buckets []tidyservice.Bucket `json:"buckets" validate:"required"`
}

// ActivityResponse wraps journal entries, newest first.
type ActivityResponse struct {
	Entries []journal.Entry `json:"entries" validate:"required"`
}

// ActivityStatsResponse wraps per-folder totals.
type ActivityStatsResponse struct {
	Folders []journal.FolderStat `json:"folders" validate:"required"`
}
