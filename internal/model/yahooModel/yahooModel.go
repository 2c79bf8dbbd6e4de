package yahooModel

// RawChartResponse mirrors the Yahoo Finance v8 chart envelope. Close values
// arrive as nullable floats: exchanges report nil for halted sessions, so the
// parser has to skip those slots instead of assuming dense arrays.
type RawChartResponse struct {
	Chart Chart `json:"chart"`
}

type Chart struct {
	Result []ChartResult `json:"result"`
	Error  *ChartError   `json:"error"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type ChartResult struct {
	Meta       Meta       `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators Indicators `json:"indicators"`
}

type Meta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type Indicators struct {
	Quote []QuoteIndicator `json:"quote"`
}

type QuoteIndicator struct {
	Close []*float64 `json:"close"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
}
