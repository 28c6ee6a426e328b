package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/bobmcallan/coin-portal/internal/market"
)

// decodeCoinDetail flattens a /coins/{id} payload. Most market_data
// fields are objects keyed by quote currency, e.g.
// market_data.current_price.usd, and are resolved for vs.
func decodeCoinDetail(body []byte, vs string) (*market.CoinDetail, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("expected a JSON object")
	}

	id := pathString(doc, "$.id")
	if id == "" {
		return nil, fmt.Errorf("payload has no id")
	}

	quoted := func(field string) float64 {
		return pathFloat(doc, fmt.Sprintf("$.market_data.%s.%s", field, vs))
	}
	quotedString := func(field string) string {
		return pathString(doc, fmt.Sprintf("$.market_data.%s.%s", field, vs))
	}

	d := &market.CoinDetail{
		Coin: market.Coin{
			ID:                       id,
			Symbol:                   pathString(doc, "$.symbol"),
			Name:                     pathString(doc, "$.name"),
			Image:                    firstString(doc, "$.image.large", "$.image.small", "$.image.thumb"),
			CurrentPrice:             quoted("current_price"),
			MarketCap:                quoted("market_cap"),
			MarketCapRank:            int(pathFloat(doc, "$.market_cap_rank")),
			TotalVolume:              quoted("total_volume"),
			PriceChangePercentage24h: pathFloat(doc, "$.market_data.price_change_percentage_24h"),
			High24h:                  quoted("high_24h"),
			Low24h:                   quoted("low_24h"),
		},
		Description:       strings.TrimSpace(pathString(doc, "$.description.en")),
		Homepage:          firstNonEmpty(pathStrings(doc, "$.links.homepage")),
		Blockchain:        firstNonEmpty(pathStrings(doc, "$.links.blockchain_site")),
		Categories:        nonEmpty(pathStrings(doc, "$.categories")),
		GenesisDate:       pathString(doc, "$.genesis_date"),
		ATH:               quoted("ath"),
		ATHDate:           quotedString("ath_date"),
		ATHChange:         quoted("ath_change_percentage"),
		ATL:               quoted("atl"),
		ATLDate:           quotedString("atl_date"),
		PriceChange7d:     pathFloat(doc, "$.market_data.price_change_percentage_7d"),
		PriceChange30d:    pathFloat(doc, "$.market_data.price_change_percentage_30d"),
		CirculatingSupply: pathFloat(doc, "$.market_data.circulating_supply"),
		TotalSupply:       pathFloat(doc, "$.market_data.total_supply"),
		MaxSupply:         pathFloat(doc, "$.market_data.max_supply"),
	}

	if prices := pathFloats(doc, "$.market_data.sparkline_7d.price"); len(prices) > 0 {
		d.Sparkline = &market.Sparkline{Price: prices}
	}
	return d, nil
}

// lookup evaluates path and unwraps single-element results. Missing keys
// and nulls yield nil.
func lookup(doc any, path string) any {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil
	}
	return v
}

func pathFloat(doc any, path string) float64 {
	v := lookup(doc, path)
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	f, _ := v.(float64)
	return f
}

func pathString(doc any, path string) string {
	v := lookup(doc, path)
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	s, _ := v.(string)
	return s
}

func pathStrings(doc any, path string) []string {
	list, _ := lookup(doc, path).([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func pathFloats(doc any, path string) []float64 {
	list, _ := lookup(doc, path).([]any)
	out := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

func firstString(doc any, paths ...string) string {
	for _, p := range paths {
		if s := pathString(doc, p); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
