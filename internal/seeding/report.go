package seeding

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// FetchMemberStats returns the server's member statistic cards.
func FetchMemberStats(ctx context.Context, cfg Config) ([]MemberStats, error) {
	cfg.normalize()
	var out []MemberStats
	if err := newClient(cfg.BaseURL, cfg.Timeout).get(ctx, "/api/v1/members/stats", &out); err != nil {
		return nil, fmt.Errorf("fetch member stats: %w", err)
	}
	return out, nil
}

// WriteMemberStats prints cards as an aligned table.
func WriteMemberStats(w io.Writer, cards []MemberStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tRATED\tAVERAGE\tMEETINGS\tPAGES")
	for _, c := range cards {
		avg := "-"
		if c.Average != nil {
			avg = c.Average.Display
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", c.Member.Name, c.RatedBooks, avg, c.MeetingsAttended, c.PagesRead)
	}
	return tw.Flush()
}
