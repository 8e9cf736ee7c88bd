package analysis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/jengzang/vessel-tracks/internal/models"
)

// Analyzer is the interface that all secondary analytics must implement.
// Analytics consume a cleaned day table and never modify it.
type Analyzer interface {
	// Analyze derives a result table from one processed day
	Analyze(ctx context.Context, day *models.DailyTable) (*Result, error)

	// GetName returns the name of the analyzer
	GetName() string
}

// Result is a tabular analytic output plus a small JSON-able summary
type Result struct {
	Name     string
	Header   []string
	Rows     [][]string
	Summary  map[string]interface{}
	Warnings []error
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Name string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(name string) *BaseAnalyzer {
	return &BaseAnalyzer{Name: name}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// NewResult creates an empty result owned by this analyzer
func (a *BaseAnalyzer) NewResult(header []string) *Result {
	return &Result{
		Name:    a.Name,
		Header:  header,
		Summary: make(map[string]interface{}),
	}
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func() Analyzer

// AnalyzerRegistry maps analytic names to analyzer factories
var AnalyzerRegistry = make(map[string]AnalyzerFactory)

// RegisterAnalyzer registers an analyzer factory for a name
func RegisterAnalyzer(name string, factory AnalyzerFactory) {
	AnalyzerRegistry[name] = factory
}

// GetAnalyzer retrieves an analyzer instance by name, nil when unknown
func GetAnalyzer(name string) Analyzer {
	factory, ok := AnalyzerRegistry[name]
	if !ok {
		return nil
	}
	return factory()
}

// RegisteredAnalyzers lists the registered analytic names in sorted order
func RegisteredAnalyzers() []string {
	names := make([]string, 0, len(AnalyzerRegistry))
	for name := range AnalyzerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatFloat renders a float cell; NaN becomes an empty cell
func FormatFloat(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTimestamp renders a timestamp cell in the wire layout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(models.TimestampLayout)
}
