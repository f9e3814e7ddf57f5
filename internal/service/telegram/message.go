package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/pkg/util"
)

// errorExcerptLen caps how much of an error lands in the alert body.
const errorExcerptLen = 500

const stampLayout = "02/01/2006 15:04"

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

// tree renders lines with box-drawing connectors: ├─ for every row except
// the last, which gets └─.
func tree(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i == len(lines)-1 {
			b.WriteString("└─ " + line)
		} else {
			b.WriteString("├─ " + line + "\n")
		}
	}
	return b.String()
}

func money(p *float64) string {
	if p == nil {
		return "$?"
	}
	return fmt.Sprintf("$%.2f", *p)
}

func summaryOf(rec *models.SignalRecord, key string) string {
	if s := rec.Summaries[key]; s != "" {
		return s
	}
	return "n/a"
}

func scoreLines(rec *models.SignalRecord) []string {
	lines := []string{
		fmt.Sprintf("Macro:       %+.0f (%s)", rec.Score(models.ScoreMacro), summaryOf(rec, models.ScoreMacro)),
		fmt.Sprintf("Market:      %+.0f (%s)", rec.Score(models.ScoreMarket), summaryOf(rec, models.ScoreMarket)),
		fmt.Sprintf("Fundamental: %+.1f (%s)", rec.Score(models.ScoreFundamental), summaryOf(rec, models.ScoreFundamental)),
	}
	if _, ok := rec.Scores[models.ScoreTechnical]; ok {
		lines = append(lines, fmt.Sprintf("Technical:   %+.1f (%s)", rec.Score(models.ScoreTechnical), summaryOf(rec, models.ScoreTechnical)))
	}
	lines = append(lines, fmt.Sprintf("Sentiment:   %+.1f (%s)", rec.Score(models.ScoreSentiment), summaryOf(rec, models.ScoreSentiment)))
	return lines
}

func buildSignalAlert(rec *models.SignalRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>BUY SIGNAL: %s</b>\n\n", rec.Symbol)
	fmt.Fprintf(&b, "📊 <b>Score: %.1f/10</b>\n", rec.TotalScore)
	b.WriteString(tree(scoreLines(rec)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💰 Price: %s\n", money(rec.Price))
	fmt.Fprintf(&b, "🎯 Confidence: %.0f%%\n\n", rec.Confidence*100)
	fmt.Fprintf(&b, "<i>ID: %s</i>\n", util.Truncate(rec.ID, 8))
	b.WriteString("<i>Use /review later to rate this signal</i>")
	return b.String()
}

func buildMacroWarning(m *models.MacroAnalysis) string {
	var b strings.Builder
	b.WriteString("🔴 <b>MACRO ALERT</b>\n\n")
	fmt.Fprintf(&b, "<b>Score: %+.0f</b>\n", m.Score)
	if len(m.Factors) > 0 {
		lines := make([]string, 0, len(m.Factors))
		for _, f := range m.Factors {
			lines = append(lines, fmt.Sprintf("%s: %+.0f (%s)", f.Name, f.Score, f.Interpretation))
		}
		b.WriteString(tree(lines))
		b.WriteString("\n")
	}
	b.WriteString("\n<i>Signal generation paused, market risk elevated.</i>")
	if m.Recommendation != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", m.Recommendation)
	}
	return b.String()
}

func buildReviewList(recs []*models.SignalRecord, prices map[string]float64) string {
	if len(recs) == 0 {
		return "✅ No signals to rate!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>SIGNALS TO RATE (%d)</b>\n\n", len(recs))
	for i, rec := range recs {
		fmt.Fprintf(&b, "%d. <b>%s</b> (%s) - %s", i+1, rec.Symbol, rec.CreatedAt.Format("02/01"), money(rec.Price))
		if current, ok := prices[rec.Symbol]; ok && rec.Price != nil && *rec.Price > 0 {
			pct := (current - *rec.Price) / *rec.Price * 100
			fmt.Fprintf(&b, " → $%.2f (%+.1f%%)", current, pct)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n<i>Send the number to rate (e.g. 1)</i>")
	return b.String()
}

func buildRatingPrompt(rec *models.SignalRecord) (string, *replyMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 <b>Rate: %s</b>\n\n", rec.Symbol)
	fmt.Fprintf(&b, "Signal price: %s\n", money(rec.Price))
	fmt.Fprintf(&b, "Initial score: %.1f/10\n\n", rec.TotalScore)
	b.WriteString("Pick a rating:")

	row := make([]inlineButton, 0, 5)
	for n := 1; n <= 5; n++ {
		row = append(row, inlineButton{
			Text:         fmt.Sprintf("⭐%d", n),
			CallbackData: fmt.Sprintf("rate_%s_%d", rec.ID, n),
		})
	}
	return b.String(), &replyMarkup{InlineKeyboard: [][]inlineButton{row}}
}

func buildStats(st *models.SignalStatistics) string {
	if st == nil || st.Total == 0 {
		return "📊 No signals recorded."
	}

	var b strings.Builder
	b.WriteString("📊 <b>FINSCOUT STATISTICS</b>\n\n")
	b.WriteString("<b>Signals</b>\n")
	b.WriteString(tree([]string{
		fmt.Sprintf("Total: %d", st.Total),
		fmt.Sprintf("Rated: %d", st.Rated),
		fmt.Sprintf("Unrated: %d", st.Unrated),
	}))
	b.WriteString("\n")

	if st.Rated > 0 {
		lines := []string{fmt.Sprintf("Average: %.1f/5", st.AvgRating)}
		for stars := 5; stars >= 1; stars-- {
			lines = append(lines, fmt.Sprintf("%s: %d", strings.Repeat("⭐", stars), st.RatingCounts[stars]))
		}
		b.WriteString("\n<b>Ratings</b>\n")
		b.WriteString(tree(lines))
		b.WriteString("\n")
	}

	if st.WithPerformance > 0 {
		b.WriteString("\n<b>Performance</b>\n")
		b.WriteString(tree([]string{
			fmt.Sprintf("Avg return: %+.2f%%", st.AvgReturn),
			fmt.Sprintf("Positive: %d", st.PositiveReturns),
			fmt.Sprintf("Negative: %d", st.NegativeReturns),
		}))
	}
	return b.String()
}

func buildErrorAlert(runErr error) string {
	excerpt := html.EscapeString(util.Truncate(runErr.Error(), errorExcerptLen))
	return "⚠️ <b>FinScout Error</b>\n\n<code>" + excerpt + "</code>"
}

func buildStartup(now time.Time, host string, watchlistSize int, llmAvailable bool) string {
	llmLine := "⚠️ LLM: keyword fallback"
	if llmAvailable {
		llmLine = "✅ LLM: active"
	}

	var b strings.Builder
	b.WriteString("🚀 <b>FinScout Started</b>\n")
	b.WriteString(now.Format(stampLayout) + "\n\n")
	if host != "" {
		b.WriteString("<b>System</b>\n")
		b.WriteString(tree([]string{"Host: " + host}))
		b.WriteString("\n\n")
	}
	b.WriteString("<b>Configuration</b>\n")
	b.WriteString(tree([]string{
		fmt.Sprintf("Symbols: %d", watchlistSize),
		llmLine,
	}))
	b.WriteString("\n\n<i>First analysis under way...</i>")
	return b.String()
}

func contextEmoji(score float64) string {
	switch {
	case score >= 0:
		return "🟢"
	case score >= -1:
		return "🟡"
	default:
		return "🔴"
	}
}

func buildDailySummary(res *models.RunResult, now time.Time) string {
	var b strings.Builder
	b.WriteString("📈 <b>DAILY SUMMARY</b>\n")
	b.WriteString(now.Format(stampLayout) + "\n\n")

	var ctxLines []string
	if res.Macro != nil {
		ctxLines = append(ctxLines, fmt.Sprintf("%s Macro: %+.0f", contextEmoji(res.Macro.Score), res.Macro.Score))
	}
	if res.Market != nil {
		ctxLines = append(ctxLines, fmt.Sprintf("%s Market: %+.0f", contextEmoji(res.Market.Score), res.Market.Score))
	}
	if len(ctxLines) > 0 {
		b.WriteString("<b>Context</b>\n")
		b.WriteString(tree(ctxLines))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "<b>Signals generated: %d</b>\n", len(res.Signals))
	if len(res.Signals) > 0 {
		b.WriteString("\n<b>Top picks:</b>\n")
		top := res.Signals
		if len(top) > 3 {
			top = top[:3]
		}
		for _, rec := range top {
			fmt.Fprintf(&b, "• %s (%.1f/10)\n", rec.Symbol, rec.TotalScore)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
