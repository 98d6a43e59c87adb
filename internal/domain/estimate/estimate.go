// Package estimate suggests task durations from the task's text, its
// category and the user's completed-task history.
package estimate

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/pkg/logger"
)

const (
	defaultMinutes    = 60
	defaultMinSamples = 5
	minimumMinutes    = 15
	roundTo           = 5
)

var (
	minutePattern = regexp.MustCompile(`(\d+)\s*min(?:ute)?s?`)
	hourPattern   = regexp.MustCompile(`(\d+)\s*(?:hour|hr)s?`)
	wordPattern   = regexp.MustCompile(`\b\w+\b`)
)

type factor struct {
	word string
	mult float64
}

// Checked in order; the first substring match wins.
var categoryFactors = []factor{
	{"work", 1.2}, {"study", 1.1}, {"research", 1.3}, {"writing", 1.2},
	{"reading", 0.9}, {"email", 0.7}, {"meeting", 1.0}, {"call", 0.8},
	{"exercise", 0.8}, {"personal", 0.9}, {"shopping", 0.8}, {"cleaning", 0.9},
	{"cooking", 0.8}, {"travel", 1.1}, {"project", 1.3}, {"assignment", 1.2},
	{"exam", 1.2}, {"presentation", 1.1}, {"report", 1.2}, {"planning", 0.9},
	{"design", 1.2}, {"development", 1.3}, {"testing", 1.0}, {"debugging", 1.2},
	{"review", 0.9}, {"analysis", 1.1},
}

var keywordFactors = []factor{
	{"quick", 0.5}, {"brief", 0.5}, {"short", 0.7}, {"small", 0.7},
	{"simple", 0.7}, {"easy", 0.7}, {"basic", 0.8}, {"medium", 1.0},
	{"average", 1.0}, {"standard", 1.0}, {"normal", 1.0}, {"complex", 1.3},
	{"complicated", 1.3}, {"difficult", 1.3}, {"hard", 1.3}, {"challenging", 1.3},
	{"long", 1.5}, {"big", 1.5}, {"large", 1.5}, {"extensive", 1.8},
	{"comprehensive", 1.8}, {"thorough", 1.8}, {"detailed", 1.5}, {"in-depth", 1.7},
}

// History supplies a user's completed tasks that have a recorded duration.
type History interface {
	ListCompletedWithActualDuration(ctx context.Context, userID string) ([]model.Task, error)
}

// Request describes the task to estimate.
type Request struct {
	UserID         string
	Title          string
	Description    string
	Category       string
	DefaultMinutes int // per-user starting point; zero uses the estimator default
}

// Source names where an estimate came from.
type Source string

// Estimate sources.
const (
	SourceExplicit Source = "explicit"
	SourceHistory  Source = "history"
	SourceRules    Source = "rules"
)

// Result is an estimate and its provenance.
type Result struct {
	Minutes int
	Source  Source
	Samples int
}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithDefaultMinutes sets the rule-based starting point.
func WithDefaultMinutes(m int) Option {
	return func(e *Estimator) {
		if m > 0 {
			e.defaultMinutes = m
		}
	}
}

// WithMinSamples sets how many same-category completions are needed before
// history overrides the rules.
func WithMinSamples(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.minSamples = n
		}
	}
}

// WithHistory enables history-based estimates.
func WithHistory(h History) Option {
	return func(e *Estimator) {
		e.history = h
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.log = l
		}
	}
}

// Estimator is safe for concurrent use; it keeps no state between calls.
type Estimator struct {
	defaultMinutes int
	minSamples     int
	history        History
	log            logger.Logger
}

// New creates an estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		defaultMinutes: defaultMinutes,
		minSamples:     defaultMinSamples,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the suggested duration. Explicit durations in the text
// win, then the user's history for the category, then the rule table.
func (e *Estimator) Estimate(ctx context.Context, req Request) (Result, error) {
	text := joinText(req)
	if m := Explicit(text); m > 0 {
		return Result{Minutes: m, Source: SourceExplicit}, nil
	}

	if e.history != nil && req.UserID != "" {
		done, err := e.history.ListCompletedWithActualDuration(ctx, req.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("load history: %w", err)
		}
		if m, n := e.fromHistory(done, req.Category); m > 0 {
			e.log.Debug(ctx, "estimate from history",
				logger.String("user", req.UserID),
				logger.String("category", req.Category),
				logger.Int("samples", n))
			return Result{Minutes: m, Source: SourceHistory, Samples: n}, nil
		}
	}

	base := e.defaultMinutes
	if req.DefaultMinutes > 0 {
		base = req.DefaultMinutes
	}
	return Result{Minutes: rules(text, req.Category, base), Source: SourceRules}, nil
}

func (e *Estimator) fromHistory(done []model.Task, category string) (int, int) {
	var sum, n int
	for _, t := range done {
		if t.ActualMinutes > 0 && strings.EqualFold(t.Category, category) {
			sum += t.ActualMinutes
			n++
		}
	}
	if n < e.minSamples {
		return 0, n
	}
	return roundMinutes(float64(sum) / float64(n)), n
}

// Explicit sums durations written in text, such as "30 minutes" or "2 hrs".
func Explicit(text string) int {
	text = strings.ToLower(text)
	total := 0
	for _, m := range minutePattern.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	for _, m := range hourPattern.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		total += n * 60
	}
	return total
}

// RuleBased estimates from word count, category and keyword tables.
func RuleBased(title, description, category string, base int) int {
	return rules(joinText(Request{Title: title, Description: description, Category: category}), category, base)
}

func rules(text, category string, base int) int {
	est := float64(base)
	switch words := len(wordPattern.FindAllString(text, -1)); {
	case words < 5:
		est *= 0.8
	case words > 20:
		est *= 1.2
	}
	est *= firstFactor(categoryFactors, strings.ToLower(category))
	est *= firstFactor(keywordFactors, text)
	return roundMinutes(est)
}

func firstFactor(table []factor, s string) float64 {
	for _, f := range table {
		if strings.Contains(s, f.word) {
			return f.mult
		}
	}
	return 1.0
}

// roundMinutes rounds to the nearest multiple of five, halves to even, with
// a fifteen minute floor.
func roundMinutes(m float64) int {
	return max(minimumMinutes, int(math.RoundToEven(m/roundTo))*roundTo)
}

func joinText(req Request) string {
	return strings.ToLower(req.Title + " " + req.Description + " " + req.Category)
}
