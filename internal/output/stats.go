// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/staranto/saasctl/internal/tier"
	"github.com/staranto/saasctl/internal/ttlstore"
)

// StatsAttrs is the column spec for StatsDocument rows.
const StatsAttrs = "tier,total,valid,expired,max_size:max,used"

type statsRow struct {
	Tier    tier.Name `json:"tier"`
	Total   int       `json:"total"`
	Valid   int       `json:"valid"`
	Expired int       `json:"expired"`
	MaxSize int       `json:"max_size"`
	Used    string    `json:"used"`
}

// StatsDocument turns per-tier stats into a JSON array, one record per tier
// in fixed tier order, ready for SliceDiceSpit.
func StatsDocument(stats map[tier.Name]ttlstore.Stats) ([]byte, error) {
	rows := make([]statsRow, 0, len(stats))
	for _, n := range tier.Names() {
		st, ok := stats[n]
		if !ok {
			continue
		}
		rows = append(rows, statsRow{
			Tier:    n,
			Total:   st.Total,
			Valid:   st.Valid,
			Expired: st.Expired,
			MaxSize: st.MaxSize,
			Used:    Percent(st.Total, st.MaxSize),
		})
	}

	doc, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache stats: %w", err)
	}
	return doc, nil
}

// Percent formats n/of as a percentage with at most one decimal.
func Percent(n, of int) string {
	if of <= 0 {
		return "0%"
	}
	return humanize.FtoaWithDigits(100*float64(n)/float64(of), 1) + "%"
}

// Size formats a payload length, e.g. "1.2 kB".
func Size(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
