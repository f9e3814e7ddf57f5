package twelvedata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/pkg/util"
)

// apiNumber tolerates Twelve Data's stringly numerics: most fields arrive
// quoted ("close": "189.84"), some as bare numbers, and missing values as
// null or "". Unparseable values stay unset instead of failing the payload.
type apiNumber struct {
	value float64
	ok    bool
}

func (n *apiNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.value = v
	n.ok = true
	return nil
}

func (n apiNumber) floatPtr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.value
	return &v
}

func (n apiNumber) intPtr() *int64 {
	if !n.ok {
		return nil
	}
	v := int64(n.value)
	return &v
}

type quotePayload struct {
	Symbol        string    `json:"symbol"`
	Close         apiNumber `json:"close"`
	Change        apiNumber `json:"change"`
	PercentChange apiNumber `json:"percent_change"`
	Volume        apiNumber `json:"volume"`
	AverageVolume apiNumber `json:"average_volume"`
	Status        string    `json:"status"`
}

func (p quotePayload) toQuote(symbol string, now time.Time) models.Quote {
	return models.Quote{
		Symbol:        symbol,
		Price:         p.Close.value,
		Change:        p.Change.value,
		ChangePercent: p.PercentChange.value,
		Volume:        p.Volume.intPtr(),
		AverageVolume: p.AverageVolume.intPtr(),
		Timestamp:     now,
	}
}

// decodeBatch reads the multi-symbol /quote shape, a map of symbol to quote
// object. Entries the provider answered with an error object are dropped.
// ok is false when the body is not that shape, including the single-object
// form some plans return, so the caller can fall back to per-symbol calls.
func decodeBatch(body []byte, now time.Time) (map[string]models.Quote, bool) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, false
	}
	if _, single := entries["close"]; single {
		return nil, false
	}

	out := make(map[string]models.Quote, len(entries))
	for symbol, raw := range entries {
		var p quotePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, false
		}
		if p.Status == "error" || !p.Close.ok {
			continue
		}
		out[symbol] = p.toQuote(symbol, now)
	}
	return out, true
}

type seriesValue struct {
	Datetime string    `json:"datetime"`
	Open     apiNumber `json:"open"`
	High     apiNumber `json:"high"`
	Low      apiNumber `json:"low"`
	Close    apiNumber `json:"close"`
	Volume   apiNumber `json:"volume"`
}

type seriesPayload struct {
	Values []seriesValue `json:"values"`
}

// toSeries keeps the provider's most-recent-first ordering. Bars without a
// close are dropped so indicator windows stay contiguous; unparseable
// datetimes leave the bar undated, indicators only consume ordering.
func (p seriesPayload) toSeries(symbol string) models.Series {
	bars := make([]models.Bar, 0, len(p.Values))
	for _, v := range p.Values {
		if !v.Close.ok {
			continue
		}
		date, _ := util.ParseBarTime(v.Datetime)
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   v.Open.value,
			High:   v.High.value,
			Low:    v.Low.value,
			Close:  v.Close.value,
			Volume: volumeOf(v.Volume),
		})
	}
	return models.Series{Symbol: symbol, Bars: bars}
}

func volumeOf(n apiNumber) int64 {
	if p := n.intPtr(); p != nil {
		return *p
	}
	return 0
}

type valueField struct {
	Value apiNumber `json:"value"`
}

type statisticsPayload struct {
	Statistics struct {
		ValuationsMetrics struct {
			TrailingPE           valueField `json:"trailing_pe"`
			MarketCapitalization valueField `json:"market_capitalization"`
		} `json:"valuations_metrics"`
		Financials struct {
			IncomeStatement struct {
				NetProfitMargin   valueField `json:"net_profit_margin"`
				GrossProfitMargin valueField `json:"gross_profit_margin"`
				OperatingMargin   valueField `json:"operating_margin"`
			} `json:"income_statement"`
			BalanceSheet struct {
				DebtToEquity valueField `json:"debt_to_equity"`
				CurrentRatio valueField `json:"current_ratio"`
			} `json:"balance_sheet"`
			ReturnOnEquity valueField `json:"return_on_equity"`
			ReturnOnAssets valueField `json:"return_on_assets"`
		} `json:"financials"`
	} `json:"statistics"`
}

func (p statisticsPayload) toFundamentals(symbol string) models.Fundamentals {
	fin := p.Statistics.Financials
	val := p.Statistics.ValuationsMetrics
	return models.Fundamentals{
		Symbol:          symbol,
		NetMargin:       fin.IncomeStatement.NetProfitMargin.Value.floatPtr(),
		GrossMargin:     fin.IncomeStatement.GrossProfitMargin.Value.floatPtr(),
		OperatingMargin: fin.IncomeStatement.OperatingMargin.Value.floatPtr(),
		DebtToEquity:    fin.BalanceSheet.DebtToEquity.Value.floatPtr(),
		CurrentRatio:    fin.BalanceSheet.CurrentRatio.Value.floatPtr(),
		ROE:             fin.ReturnOnEquity.Value.floatPtr(),
		ROA:             fin.ReturnOnAssets.Value.floatPtr(),
		PERatio:         val.TrailingPE.Value.floatPtr(),
		MarketCap:       val.MarketCapitalization.Value.floatPtr(),
	}
}

// apiError detects the in-band error payload Twelve Data returns with HTTP
// 200: {"code": 429, "message": "...", "status": "error"}.
func apiError(body []byte) (string, bool) {
	var envelope struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	if envelope.Status != "error" {
		return "", false
	}
	if envelope.Message == "" {
		return "api error " + strconv.Itoa(envelope.Code), true
	}
	return envelope.Message, true
}
