package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chatfeed/internal/feed"
	"chatfeed/internal/model"
)

const (
	// Telegram rejects longer message texts.
	maxMessageLen = 4096
	maxItemLen    = 1000
	markerReserve = 48
)

// View is what a feed message shows.
type View struct {
	Items     []model.Item // newest first
	State     feed.LoadState
	Loading   bool
	Err       error
	AnchorTop bool // keep the oldest loaded items when the text must be cut
}

// FormatTimeline renders v oldest first, the way a chat reads, cutting it to
// fit one Telegram message.
func FormatTimeline(v View) string {
	var b strings.Builder
	b.WriteString(formatHeader(v))

	if len(v.Items) == 0 {
		b.WriteString("\n\nNo messages yet.")
		return b.String()
	}

	lines := make([]string, len(v.Items))
	for i, it := range v.Items {
		lines[len(lines)-1-i] = FormatItem(it)
	}

	budget := maxMessageLen - utf8.RuneCountInString(b.String()) - markerReserve
	kept, skipped := fitLines(lines, budget, v.AnchorTop)

	b.WriteString("\n")
	if skipped > 0 && !v.AnchorTop {
		fmt.Fprintf(&b, "\n... %d older not shown", skipped)
	}
	for _, l := range kept {
		b.WriteString("\n")
		b.WriteString(l)
	}
	if skipped > 0 && v.AnchorTop {
		fmt.Fprintf(&b, "\n... %d newer not shown, tap Latest", skipped)
	}
	return b.String()
}

// FormatItem formats one message as a single entry.
func FormatItem(it model.Item) string {
	body := it.Body
	if utf8.RuneCountInString(body) > maxItemLen {
		body = string([]rune(body)[:maxItemLen]) + "..."
	}
	return fmt.Sprintf("[%s] %s: %s", it.CreatedAt.UTC().Format("2006-01-02 15:04"), it.AuthorID, body)
}

func formatHeader(v View) string {
	header := fmt.Sprintf("Feed: %d messages", len(v.Items))
	switch {
	case v.Err != nil:
		return header + "\nFailed to load older messages. Tap Older to retry."
	case v.Loading || v.State == feed.Loading:
		return header + "\nLoading older messages..."
	case v.State == feed.Exhausted:
		return header + "\nBeginning of history."
	}
	return header
}

// fitLines keeps as many lines as fit in budget runes, counting one separator
// per line. Lines are taken from the start when fromTop is set, otherwise from
// the end. Kept lines stay in their original order.
func fitLines(lines []string, budget int, fromTop bool) ([]string, int) {
	used, n := 0, 0
	for n < len(lines) {
		l := lines[n]
		if !fromTop {
			l = lines[len(lines)-1-n]
		}
		cost := utf8.RuneCountInString(l) + 1
		if used+cost > budget {
			break
		}
		used += cost
		n++
	}
	if fromTop {
		return lines[:n], len(lines) - n
	}
	return lines[len(lines)-n:], len(lines) - n
}
