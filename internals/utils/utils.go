package utils

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// OpenBrowser opens the given url in a browser
func OpenBrowser(url string) error {
	// 15 seconds timeout to open the browser
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "xdg-open", url).Run()
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url).Run()
	case "darwin":
		return exec.CommandContext(ctx, "open", url).Run()
	default:
		return fmt.Errorf("unsupported platform")
	}
}

// AnonymizeEmail masks the local part and the first domain label of an
// email so it can show up in logs, keeping first and last characters.
func AnonymizeEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found {
		return anonymizePart(local)
	}
	first, rest, found := strings.Cut(domain, ".")
	domain = anonymizePart(first)
	if found {
		domain += "." + rest
	}
	return anonymizePart(local) + "@" + domain
}

func anonymizePart(part string) string {
	runes := []rune(part)
	if len(runes) == 0 {
		return part
	}
	stars := len(runes) - 2
	if stars < 0 {
		stars = 0
	}
	return string(runes[0]) + strings.Repeat("*", stars) + string(runes[len(runes)-1])
}
