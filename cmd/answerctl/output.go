package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.Faint)
	goodColor   = color.New(color.FgGreen, color.Bold)
	fairColor   = color.New(color.FgYellow)
	poorColor   = color.New(color.FgRed)
)

func scoreColor(score float64) *color.Color {
	switch {
	case score >= 0.7:
		return goodColor
	case score >= 0.4:
		return fairColor
	default:
		return poorColor
	}
}

func printAnswer(w io.Writer, a *domain.Answer, withPassages bool) {
	headerColor.Fprintln(w, a.Text)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("confidence:"), scoreColor(a.Confidence).Sprintf("%.3f", a.Confidence))
	fmt.Fprintf(w, "%s %s (%s)\n", labelColor.Sprint("source:"), a.Source, a.Method)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("question type:"), a.Question.Type)
	if len(a.Validation.Issues) > 0 {
		fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("issues:"), poorColor.Sprint(strings.Join(a.Validation.Issues, "; ")))
	}
	if !withPassages {
		return
	}
	for i, p := range a.Passages {
		fmt.Fprintf(w, "%s %s %s\n",
			labelColor.Sprintf("[%d]", i+1),
			scoreColor(p.FinalScore).Sprintf("%.3f", p.FinalScore),
			p.Text,
		)
	}
}

func printSimilarity(w io.Writer, r domain.SimilarityReport) {
	headerColor.Fprintf(w, "composite %.3f (%s)\n", r.Composite, r.Tier)
	rows := []struct {
		name  string
		value float64
	}{
		{"jaccard", r.Jaccard},
		{"lexical cosine", r.LexicalCosine},
		{"semantic cosine", r.SemanticCosine},
		{"sequence ratio", r.SequenceRatio},
		{"density delta", r.InformationDensity},
		{"answer quality", r.AnswerQuality},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-16s %s\n", row.name, scoreColor(row.value).Sprintf("%.3f", row.value))
	}
	if r.SemanticState == domain.SignalUnavailable {
		fmt.Fprintf(w, "  %s\n", fairColor.Sprintf("semantic signal %s", r.SemanticState))
	}
}

func printValidation(w io.Writer, r domain.ValidationReport) {
	verdict := poorColor.Sprint("invalid")
	if r.IsValid {
		verdict = goodColor.Sprint("valid")
	}
	fmt.Fprintf(w, "%s confidence %s\n", verdict, scoreColor(r.ConfidenceScore).Sprintf("%.3f", r.ConfidenceScore))

	names := make([]string, 0, len(r.QualityMetrics))
	for name := range r.QualityMetrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %.3f\n", name, r.QualityMetrics[name])
	}
	for _, s := range r.Strengths {
		fmt.Fprintf(w, "  + %s\n", goodColor.Sprint(s))
	}
	for _, s := range r.Issues {
		fmt.Fprintf(w, "  - %s\n", poorColor.Sprint(s))
	}
}

func printIndexReport(w io.Writer, r *domain.IndexReport) {
	fmt.Fprintf(w, "%s %s: %s indexed, %d duplicates, %d skipped of %d\n",
		goodColor.Sprint("indexed"),
		r.Source,
		goodColor.Sprint(r.Indexed),
		r.Duplicates,
		r.Skipped,
		r.Received,
	)
}

// progressReporter draws one bar per indexed source.
type progressReporter struct {
	w     io.Writer
	label string
	bar   *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

func (p *progressReporter) start(label string) {
	p.label = label
	p.bar = nil
}

func (p *progressReporter) update(done, total int) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("embedding "+p.label),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("passages"),
			progressbar.OptionSetWidth(40),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.w)
	}
	p.bar = nil
}
