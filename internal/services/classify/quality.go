package classify

import (
	"context"
	"fmt"

	"FinScout/internal/domain/models"
	"FinScout/pkg/util"
)

// Quality statuses.
const (
	QualityOK      = "OK"
	QualityWarning = "WARNING"
	QualityFail    = "FAIL"
)

// qualityCases are headlines with an unambiguous expected sentiment. A model
// that misses these is not trustworthy on real news.
var qualityCases = []struct {
	text     string
	expected string
}{
	{"Apple stock soars 15% on record iPhone sales", models.CategoryPositive},
	{"Company announces massive layoffs, stock crashes", models.CategoryNegative},
	{"Quarterly results meet analyst expectations", models.CategoryNeutral},
	{"Revenue beats expectations, profit margins expand", models.CategoryPositive},
	{"CEO resigns amid accounting scandal investigation", models.CategoryNegative},
}

// QualityCase is one graded headline.
type QualityCase struct {
	Text       string  `json:"text"`
	Expected   string  `json:"expected"`
	Got        string  `json:"got"`
	Confidence float64 `json:"confidence"`
	Correct    bool    `json:"correct"`
}

// QualityReport grades the classifier against the canned headlines.
type QualityReport struct {
	Accuracy float64       `json:"accuracy"`
	Score    string        `json:"score"`
	Status   string        `json:"status"`
	Cases    []QualityCase `json:"cases"`
}

// QualityCheck runs the canned headlines through the chain and grades the
// result: OK at 80% accuracy, WARNING at 60%, FAIL below.
func (c *Chain) QualityCheck(ctx context.Context) QualityReport {
	correct := 0
	cases := make([]QualityCase, 0, len(qualityCases))

	for _, tc := range qualityCases {
		res, err := c.Sentiment(ctx, tc.text)
		got := models.CategoryUnknown
		if err == nil {
			got = res.Category
		}
		ok := got == tc.expected
		if ok {
			correct++
		}
		cases = append(cases, QualityCase{
			Text:       util.Truncate(tc.text, 50) + "...",
			Expected:   tc.expected,
			Got:        got,
			Confidence: res.Confidence,
			Correct:    ok,
		})
	}

	accuracy := float64(correct) / float64(len(qualityCases))
	status := QualityFail
	switch {
	case accuracy >= 0.8:
		status = QualityOK
	case accuracy >= 0.6:
		status = QualityWarning
	}
	return QualityReport{
		Accuracy: accuracy,
		Score:    fmt.Sprintf("%d/%d", correct, len(qualityCases)),
		Status:   status,
		Cases:    cases,
	}
}
