package incident

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// whenLayout formats wall-clock times in chat messages.
const whenLayout = "2006-01-02 15:04:05 MST"

// StartInfo describes the running configuration for the startup banner.
type StartInfo struct {
	Unit             string
	Validator        string
	LogChatAfter     int
	LogPageAfter     int
	ChainAfter       int
	TimeoutThreshold int
	PagingEnabled    bool
	At               time.Time
}

// StartedMessage is sent once the source is running.
func StartedMessage(info StartInfo) string {
	var b strings.Builder
	b.WriteString("🟢 <b>Monitor Online</b>\n")
	b.WriteString("• Watching: <code>timeout</code>\n")
	fmt.Fprintf(&b, "• Unit: <code>%s</code>\n", html.EscapeString(info.Unit))
	fmt.Fprintf(&b, "• Validator: %s\n", html.EscapeString(truncate(info.Validator, 24)))
	fmt.Fprintf(&b, "• Silence → TG: <b>%ds</b>, PD: <b>%ds</b>\n", info.LogChatAfter, info.LogPageAfter)
	if info.ChainAfter > 0 {
		fmt.Fprintf(&b, "• Chain silence: <b>%ds</b>\n", info.ChainAfter)
	}
	fmt.Fprintf(&b, "• Timeout threshold: <b>%d</b>\n", info.TimeoutThreshold)
	if !info.PagingEnabled {
		b.WriteString("• Paging: <i>disabled</i>\n")
	}
	fmt.Fprintf(&b, "• Started: <i>%s</i>", info.At.Format(whenLayout))
	return b.String()
}

// TimeoutMessage reports one timeout of the local validator.
func TimeoutMessage(count, threshold int, round int64, author string, at time.Time) string {
	return fmt.Sprintf("⛔ Timeout detected (#%d/%d)\n"+
		"• Round: %d\n"+
		"• Validator: %s...\n"+
		"• When: %s",
		count, threshold, round, html.EscapeString(truncate(author, 24)), at.Format(whenLayout))
}

// TimeoutRecoveredMessage reports the end of a streak.
func TimeoutRecoveredMessage(round int64, streak int) string {
	return fmt.Sprintf("✅ <b>Recovered</b>\n"+
		"• Finalized observed on round <b>%d</b>\n"+
		"• Previous timeout streak: <b>%d</b>", round, streak)
}

// LogSilenceWarnMessage reports that the log source went quiet.
func LogSilenceWarnMessage(seconds int64, unit string) string {
	return fmt.Sprintf("🚨 <b>No ledger-tail logs</b>\n"+
		"• Silent for <b>%ds</b>\n"+
		"• Check: <code>%s</code> service", seconds, html.EscapeString(unit))
}

// LogSilenceResolvedMessage reports that events arrive again.
func LogSilenceResolvedMessage() string {
	return "🟩 <b>Logs resumed</b>\n• ledger-tail activity detected again"
}

// ChainSilentWarnMessage reports a stalled chain on a live node.
func ChainSilentWarnMessage(seconds int64) string {
	return fmt.Sprintf("🕒 <b>No new blocks on chain</b>\n"+
		"• ~<b>%d min</b> without proposed/finalized\n"+
		"• Your node is logging, but chain looks quiet", approxMinutes(seconds))
}

// ChainSilentResolvedMessage reports new block activity.
func ChainSilentResolvedMessage() string {
	return "🟩 <b>Chain activity resumed</b>\n• New proposed/finalized observed"
}

// SourceExitedMessage reports that the log stream ended.
func SourceExitedMessage(source string, code int) string {
	return fmt.Sprintf("🔴 <b>Monitoring stopped</b>\n• %s exited with code <b>%d</b>", html.EscapeString(source), code)
}

// SourceFailedMessage reports that the log stream could not be started.
func SourceFailedMessage(source string, err error) string {
	return fmt.Sprintf("❌ <b>FAILED TO START</b>\nCannot start %s: %s", html.EscapeString(source), html.EscapeString(err.Error()))
}

// StoppedMessage is the best-effort shutdown notice.
func StoppedMessage() string {
	return "🔴 <b>MONITOR STOPPED</b>"
}

func approxMinutes(seconds int64) int64 {
	return max(seconds/60, 1)
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
