package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"JackpotWheel/internal/model"
)

// FormatSettlement formats a settled round into a Telegram message.
func FormatSettlement(round *model.Round, winnerName string, winnerStake float64) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🎰 <b>Round #%d settled</b>\n\n", round.ID))
	if round.Status == model.RoundCancelled {
		b.WriteString("Round was cancelled, all entries refunded.\n")
		return b.String()
	}

	name := winnerName
	if name == "" {
		name = shortAccount(round.Winner)
	}
	b.WriteString(fmt.Sprintf("Winner: <b>%s</b>\n", name))
	b.WriteString(fmt.Sprintf("Prize: %s ◎\n", humanize.CommafWithDigits(round.Prize, 4)))
	b.WriteString(fmt.Sprintf("Pot: %s ◎ across %s entries\n",
		humanize.CommafWithDigits(round.PotTotal, 4), humanize.Comma(int64(round.EntriesCount))))
	if round.PotTotal > 0 && winnerStake > 0 {
		b.WriteString(fmt.Sprintf("Win chance: %.2f%%\n", winnerStake/round.PotTotal*100))
	}
	return b.String()
}

// FormatDegenRecord announces a new degen-of-the-day record.
func FormatDegenRecord(entry *model.DegenEntry, winnerName string) string {
	name := winnerName
	if name == "" {
		name = shortAccount(entry.Account)
	}
	var b strings.Builder
	b.WriteString("🔥 <b>New degen of the day!</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>%s</b> took round #%d with a %.2f%% chance.\n",
		name, entry.RoundID, entry.WinChancePct))
	return b.String()
}

// FormatRoundStatus formats the live round for the /round command.
func FormatRoundStatus(snap model.RoundSnapshot, phase string) string {
	if snap.Generation == 0 {
		return "No round data yet, still syncing."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎡 <b>Round #%d</b> [%s]\n\n", snap.Active.ID, phase))
	b.WriteString(fmt.Sprintf("Status: %s\n", snap.Active.Status))
	b.WriteString(fmt.Sprintf("Pot: %s ◎\n", humanize.CommafWithDigits(snap.Active.PotTotal, 4)))
	b.WriteString(fmt.Sprintf("Entries: %d\n", snap.Active.EntriesCount))
	if snap.PlayerStake > 0 {
		b.WriteString(fmt.Sprintf("Your stake: %s ◎\n", humanize.CommafWithDigits(snap.PlayerStake, 4)))
	}
	if !snap.Active.EndsAt.IsZero() {
		b.WriteString(fmt.Sprintf("Ends: %s\n", humanize.Time(snap.Active.EndsAt)))
	}
	b.WriteString(fmt.Sprintf("\nSynced %s", humanize.Time(snap.FetchedAt)))
	return b.String()
}

// FormatDegenStatus formats the current record for the /degen command.
func FormatDegenStatus(rec *model.DegenRecord) string {
	if rec == nil || rec.Current == nil {
		return "No degen of the day yet."
	}
	var b strings.Builder
	b.WriteString("🔥 <b>Degen of the day</b>\n\n")
	b.WriteString(fmt.Sprintf("%s, round #%d, %.2f%% chance\n",
		shortAccount(rec.Current.Account), rec.Current.RoundID, rec.Current.WinChancePct))
	b.WriteString(fmt.Sprintf("Set %s\n", humanize.Time(rec.Current.SetAt)))
	b.WriteString(fmt.Sprintf("Window resets %s\n", humanize.Time(rec.WindowEnd)))
	return b.String()
}

// FormatDailySummary formats the scheduled end-of-day report.
func FormatDailySummary(rec *model.DegenRecord, roundsSeen int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Daily summary</b> | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Rounds settled: %d\n", roundsSeen))
	if rec != nil && rec.Current != nil {
		b.WriteString(fmt.Sprintf("Degen of the day: %s (%.2f%% in round #%d)\n",
			shortAccount(rec.Current.Account), rec.Current.WinChancePct, rec.Current.RoundID))
	} else {
		b.WriteString("No degen of the day recorded.\n")
	}
	return b.String()
}

// shortAccount abbreviates a base58 account for display.
func shortAccount(account string) string {
	if len(account) <= 10 {
		return account
	}
	return account[:4] + "…" + account[len(account)-4:]
}
