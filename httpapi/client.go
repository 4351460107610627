package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/MrEthical07/credguard"
)

// clientAttrs describes the caller for denial logs. Scripted clients that
// announce themselves as bots are flagged so stuffing runs stand out.
func clientAttrs(r *http.Request) slog.Attr {
	agent, bot := describeUserAgent(r.UserAgent())
	return slog.Group("client",
		slog.String("ip", credguard.ClientIP(r.Context())),
		slog.String("agent", agent),
		slog.Bool("bot", bot),
	)
}

// describeUserAgent returns "Browser on OS" and whether the agent is a bot.
func describeUserAgent(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "unknown", false
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}

	if browser == "" {
		browser = "unknown browser"
	}
	if os == "" {
		os = "unknown os"
	}
	return strings.TrimSpace(browser + " on " + os), ua.Bot()
}
