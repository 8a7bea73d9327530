package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"

	"github.com/benvon/manasmitra/internal/models"
)

const (
	trendHeight   = 5
	trendMinWidth = 10
)

// RenderTrend draws the mood trend as a sparkline with the latest points
// listed below it.
func RenderTrend(trend models.MoodTrend, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Mood trend ") + "\n")

	if !trend.EnoughData {
		b.WriteString("\n" + dimStyle.Render("Check in at least twice to see your trend.") + "\n")
		return containerStyle.Render(b.String())
	}

	if width < trendMinWidth {
		width = trendMinWidth
	}
	spark := sparkline.New(width, trendHeight)
	for _, p := range trend.Points {
		spark.Push(float64(p.MoodScore))
	}
	spark.Draw()
	b.WriteString("\n" + sparklineStyle.Render(spark.View()) + "\n")

	first, last := trend.Points[0], trend.Points[len(trend.Points)-1]
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s … %s", first.Label, last.Label)) + "\n")

	b.WriteString(sectionStyle.Render("Latest") + "\n")
	start := len(trend.Points) - 5
	if start < 0 {
		start = 0
	}
	for _, p := range trend.Points[start:] {
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-8s ", p.Label)) +
			valueStyle.Render(fmt.Sprintf("%s %s", p.MoodName.Emoji(), p.MoodName)) +
			dimStyle.Render(fmt.Sprintf("  %d/5", p.MoodScore)) + "\n")
	}
	return containerStyle.Render(b.String())
}
