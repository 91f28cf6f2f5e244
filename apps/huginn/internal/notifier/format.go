package notifier

import (
	"fmt"
	"html"
	"strings"

	"huginn/apps/huginn/internal/network"
)

// UnbondText lists every new unbond hash as an explorer link in a single message.
func UnbondText(cfg network.Config, address string, hashes []string) string {
	links := make([]string, 0, len(hashes))
	for _, h := range hashes {
		links = append(links, fmt.Sprintf(`<a href="%s">%s</a>`, cfg.TxURL(h), h))
	}
	return fmt.Sprintf("🚨 Your wallet %s initiated an unbond (undelegate) transaction: %s.\nIf this wasn't you, please contact support.",
		address, strings.Join(links, ", "))
}

func JailText(address, moniker, valoper string) string {
	return fmt.Sprintf("⚠️ Your wallet %s is delegating to validator %s (%s), which is currently jailed.",
		address, html.EscapeString(moniker), valoper)
}
