package gammaapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Market represents a Gamma API market
type Market struct {
	ID            string  `json:"id"`
	ConditionID   string  `json:"conditionId"`
	Slug          string  `json:"slug"`
	Question      string  `json:"question"`
	EndDate       string  `json:"endDate"`
	Category      string  `json:"category"`
	VolumeNum     float64 `json:"volumeNum"`
	LiquidityNum  float64 `json:"liquidityNum"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
	Outcomes      string  `json:"outcomes"`      // JSON array string, e.g. `["Yes","No"]`
	OutcomePrices string  `json:"outcomePrices"` // JSON array string, e.g. `["0.98","0.02"]`
	ClobTokenIDs  string  `json:"clobTokenIds"`  // JSON array string of CLOB token ids
}

// ParseOutcomes decodes the outcome labels. Older payloads use a plain
// comma-separated string, newer ones a JSON-encoded array.
func (m *Market) ParseOutcomes() []string {
	return parseStringArray(m.Outcomes)
}

// ParseOutcomePrices decodes the outcome prices in outcome order
func (m *Market) ParseOutcomePrices() []float64 {
	raw := parseStringArray(m.OutcomePrices)
	prices := make([]float64, 0, len(raw))
	for _, s := range raw {
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		prices = append(prices, p)
	}
	return prices
}

// ParseClobTokenIDs decodes the CLOB token ids in outcome order
func (m *Market) ParseClobTokenIDs() []string {
	return parseStringArray(m.ClobTokenIDs)
}

// WinningOutcome reports which outcome settled, if the market has. A market
// counts as settled once it is closed and one outcome's price has pinned at
// or above the threshold.
func (m *Market) WinningOutcome(threshold float64) (string, bool) {
	if !m.Closed {
		return "", false
	}
	outcomes := m.ParseOutcomes()
	prices := m.ParseOutcomePrices()
	if len(outcomes) == 0 || len(outcomes) != len(prices) {
		return "", false
	}
	for i, p := range prices {
		if p >= threshold {
			return outcomes[i], true
		}
	}
	return "", false
}

// parseStringArray handles both JSON-encoded arrays (possibly of numbers)
// and bare comma-separated values.
func parseStringArray(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
		var nums []float64
		if err := json.Unmarshal([]byte(raw), &nums); err == nil {
			out = make([]string, len(nums))
			for i, n := range nums {
				out[i] = strconv.FormatFloat(n, 'f', -1, 64)
			}
			return out
		}
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Event represents a Gamma API event
type Event struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Markets  []Market `json:"markets"`
	Category string   `json:"category"`
	EndDate  string   `json:"endDate"`
	Active   bool     `json:"active"`
	Closed   bool     `json:"closed"`
}
