package fetch

import (
	"math/rand/v2"
	"strings"
	"sync"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Mobile Safari/537.36",
}

var acceptLanguages = []string{
	"pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
	"pt-BR,pt;q=0.9,en;q=0.8",
	"pt-BR,pt;q=0.8,en-US;q=0.5,en;q=0.3",
	"en-US,en;q=0.9,pt-BR;q=0.8,pt;q=0.7",
}

// Fingerprint is the set of browser-identifying headers used for one call.
type Fingerprint struct {
	UserAgent      string
	AcceptLanguage string
}

// Headers returns the request headers for the fingerprint, including client
// hints for Chromium browsers.
func (f Fingerprint) Headers() map[string]string {
	h := map[string]string{
		"User-Agent":                f.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           f.AcceptLanguage,
		"Accept-Encoding":           "gzip, deflate, br",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
	}
	if version, ok := chromeMajor(f.UserAgent); ok {
		brand := "Google Chrome"
		if strings.Contains(f.UserAgent, "Edg/") {
			brand = "Microsoft Edge"
		}
		h["Sec-Ch-Ua"] = `"Chromium";v="` + version + `", "` + brand + `";v="` + version + `", "Not?A_Brand";v="99"`
		h["Sec-Ch-Ua-Mobile"] = "?0"
		if strings.Contains(f.UserAgent, "Mobile") {
			h["Sec-Ch-Ua-Mobile"] = "?1"
		}
		h["Sec-Ch-Ua-Platform"] = `"` + uaPlatform(f.UserAgent) + `"`
	}
	return h
}

func (f Fingerprint) key() string {
	return f.UserAgent + "|" + f.AcceptLanguage
}

func chromeMajor(ua string) (string, bool) {
	if strings.Contains(ua, "Firefox/") {
		return "", false
	}
	idx := strings.Index(ua, "Chrome/")
	if idx < 0 {
		return "", false
	}
	v := ua[idx+len("Chrome/"):]
	if dot := strings.IndexByte(v, '.'); dot > 0 {
		v = v[:dot]
	}
	return v, true
}

func uaPlatform(ua string) string {
	switch {
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Macintosh"):
		return "macOS"
	default:
		return "Linux"
	}
}

// FingerprintPool hands out fingerprints so that consecutive calls to the same
// platform never reuse the previous one.
type FingerprintPool struct {
	mu   sync.Mutex
	last map[string]string
}

// NewFingerprintPool creates a pool over the built-in user agents.
func NewFingerprintPool() *FingerprintPool {
	return &FingerprintPool{last: make(map[string]string)}
}

// Next returns a fingerprint for platform that differs from its previous one.
func (p *FingerprintPool) Next(platform string) Fingerprint {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.last[platform]
	for {
		fp := Fingerprint{
			UserAgent:      userAgents[rand.IntN(len(userAgents))],
			AcceptLanguage: acceptLanguages[rand.IntN(len(acceptLanguages))],
		}
		if fp.key() != prev {
			p.last[platform] = fp.key()
			return fp
		}
	}
}
