package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/tokenpools/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier imprimiendo tablas en texto plano.
type Console struct {
	out    io.Writer
	detail bool // imprime también el desglose por asset de cada team
	now    func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(detail bool) *Console {
	return &Console{out: os.Stdout, detail: detail, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, detail bool) *Console {
	return &Console{out: w, detail: detail, now: time.Now}
}

// ContestFinished imprime el resultado definitivo de un contest.
func (c *Console) ContestFinished(_ context.Context, s domain.Standings) error {
	fmt.Fprintf(c.out, "\n[%s] contest %s finished, %d teams, %d winners\n",
		c.now().Format("15:04:05"), label(s.Contest), len(s.Teams), len(s.Winners()))
	c.PrintStandings(s)
	return nil
}

// PrintStandings imprime el leaderboard en el estado en que esté el contest.
func (c *Console) PrintStandings(s domain.Standings) {
	ct := s.Contest
	fmt.Fprintf(c.out, "\n=== %s [%s] %d/%d participants, pool $%.2f ===\n",
		label(ct), ct.Status, ct.CurrentParticipants, ct.MaxParticipants, ct.PoolSize)

	switch ct.Status {
	case domain.StatusOngoing:
		fmt.Fprintf(c.out, "  ends at %s (%s left)\n",
			ct.EndsAt().Format(time.RFC3339), ct.Remaining(c.now()).Round(time.Second))
	case domain.StatusFinished:
		if ct.EndedAt != nil {
			fmt.Fprintf(c.out, "  ended at %s\n", ct.EndedAt.Format(time.RFC3339))
		}
	}

	if len(s.Teams) == 0 {
		fmt.Fprintln(c.out, "  (no participants)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Team", "User", "Score", "Prize", "Tie")
	for _, t := range s.Teams {
		rank := "-"
		if t.Rank > 0 {
			rank = fmt.Sprintf("%d", t.Rank)
		}
		tie := ""
		if t.IsTie {
			tie = "yes"
		}
		table.Append(
			rank,
			truncate(teamName(t), 28),
			truncate(t.UserID, 20),
			fmt.Sprintf("%.2f", t.Total),
			fmt.Sprintf("$%.2f", t.Prize),
			tie,
		)
	}
	table.Render()

	if s.Provisional {
		fmt.Fprintln(c.out, "  Ranks are provisional: recomputed on every read from current prices.")
	}

	if c.detail {
		for _, t := range s.Teams {
			c.printAssets(t)
		}
	}
}

// printAssets imprime el aporte de cada asset al score del team.
func (c *Console) printAssets(t domain.RankedTeam) {
	fmt.Fprintf(c.out, "\n── %s ──\n", teamName(t))
	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Cost", "Locked", "Observed", "Chg %", "Score")
	for _, a := range t.Assets {
		observed := "n/a"
		if a.Available {
			observed = fmt.Sprintf("%.6g", a.ObservedPrice)
		}
		table.Append(
			assetLabel(a),
			fmt.Sprintf("%d", a.Cost),
			fmt.Sprintf("%.6g", a.LockedPrice),
			observed,
			fmt.Sprintf("%+.2f", a.PercentChange),
			fmt.Sprintf("%.2f", a.Score),
		)
	}
	table.Render()
}

// PrintContests imprime un listado de contests.
func (c *Console) PrintContests(contests []domain.Contest) {
	if len(contests) == 0 {
		fmt.Fprintf(c.out, "[%s] no contests found\n", c.now().Format("15:04:05"))
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Serial", "Name", "Status", "Players", "Fee", "Pool", "Duration", "Ends")
	for _, ct := range contests {
		ends := "-"
		if ct.StartedAt != nil {
			ends = ct.EndsAt().Format("01-02 15:04")
		}
		table.Append(
			ct.SerialNumber,
			truncate(ct.Name, 24),
			string(ct.Status),
			fmt.Sprintf("%d/%d", ct.CurrentParticipants, ct.MaxParticipants),
			fmt.Sprintf("$%.2f", ct.EntryFee),
			fmt.Sprintf("$%.2f", ct.PoolSize),
			ct.Duration.String(),
			ends,
		)
	}
	table.Render()
}

func label(ct domain.Contest) string {
	if ct.Name != "" {
		return fmt.Sprintf("%s (#%s)", ct.Name, ct.SerialNumber)
	}
	return "#" + ct.SerialNumber
}

func teamName(t domain.RankedTeam) string {
	if t.TeamName != "" {
		return t.TeamName
	}
	return t.TeamID
}

func assetLabel(a domain.AssetScore) string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.AssetID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
