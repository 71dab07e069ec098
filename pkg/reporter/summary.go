package reporter

import "github.com/yaklabco/perlparse/pkg/runner"

// SummaryDoc contains aggregate statistics of a run.
type SummaryDoc struct {
	FilesParsed     int            `json:"filesParsed" yaml:"filesParsed"`
	FilesFailed     int            `json:"filesFailed" yaml:"filesFailed"`
	FilesWithErrors int            `json:"filesWithErrors" yaml:"filesWithErrors"`
	TotalErrors     int            `json:"totalErrors" yaml:"totalErrors"`
	ByKind          map[string]int `json:"byKind" yaml:"byKind"`
	Tokens          int            `json:"tokens" yaml:"tokens"`
	Heredocs        int            `json:"heredocs" yaml:"heredocs"`
}

// NewSummaryDoc converts runner statistics.
func NewSummaryDoc(stats runner.Stats) *SummaryDoc {
	byKind := make(map[string]int, len(stats.ErrorsByKind))
	for kind, n := range stats.ErrorsByKind {
		byKind[kind] = n
	}
	return &SummaryDoc{
		FilesParsed:     stats.FilesParsed,
		FilesFailed:     stats.FilesFailed,
		FilesWithErrors: stats.FilesWithErrors,
		TotalErrors:     stats.ErrorsTotal,
		ByKind:          byKind,
		Tokens:          stats.Tokens,
		Heredocs:        stats.Heredocs,
	}
}
