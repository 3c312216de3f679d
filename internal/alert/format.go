package alert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Format renders an opportunity into an alert message. The body carries the
// matched market title; the fields carry the expected profit in
// dollars-per-unit and percent, the per-platform price breakdown with direct
// market links, the earliest resolution date, and the match confidence.
func Format(opp *domain.ArbitrageOpportunity) Message {
	msg := Message{
		Title: fmt.Sprintf("Arbitrage: %s × %s (%s ROI)",
			opp.LegA.Platform.Name(), opp.LegB.Platform.Name(), opp.ROI.StringFixed(2)+"%"),
		Body: fmt.Sprintf("**%s**", opp.LegA.Title),
		Fields: []Field{
			{
				Name: "Profit",
				Value: fmt.Sprintf("$%s per $1 staked (%s%%)",
					opp.ProfitMargin.StringFixed(4), opp.ROI.StringFixed(2)),
			},
			{
				Name: "Net cost",
				Value: fmt.Sprintf("$%s (fees $%s)",
					opp.NetCost.StringFixed(4), opp.TotalFees.StringFixed(4)),
				Inline: true,
			},
			legField(&opp.LegA),
			legField(&opp.LegB),
		},
	}

	if end := earliestEnd(opp); end != nil {
		msg.Fields = append(msg.Fields, Field{
			Name:   "Resolves by",
			Value:  end.Format("2006-01-02"),
			Inline: true,
		})
	}
	msg.Fields = append(msg.Fields, Field{
		Name:   "Match confidence",
		Value:  strconv.Itoa(opp.MatchScore),
		Inline: true,
	})

	return msg
}

func legField(leg *domain.Leg) Field {
	return Field{
		Name: leg.Platform.Name(),
		Value: fmt.Sprintf("buy %s at $%s\n%s",
			leg.Outcome, leg.Price.StringFixed(4), leg.URL),
		Inline: true,
	}
}

func earliestEnd(opp *domain.ArbitrageOpportunity) *time.Time {
	a, bd := opp.LegA.EndDate, opp.LegB.EndDate
	switch {
	case a == nil:
		return bd
	case bd == nil:
		return a
	case bd.Before(*a):
		return bd
	default:
		return a
	}
}
