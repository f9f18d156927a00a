// Package secrets spots credentials in paste text before it is stored.
package secrets

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Finding is one suspected credential.
type Finding struct {
	Rule    string
	Line    int
	Snippet string
}

type rule struct {
	name string
	re   *regexp.Regexp
}

var rules = []rule{
	{"PEM private key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},
	{"AWS access key id", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"AWS secret access key", regexp.MustCompile(`(?i)aws.+(secret|access)_?key[^A-Za-z0-9]{0,3}[=:]\s*[A-Za-z0-9/\+=]{30,}`)},
	{"GitHub token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{"GitLab token", regexp.MustCompile(`\bglpat-[A-Za-z0-9\-_]{20,}\b`)},
	{"Slack token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,48}\b`)},
	{"Stripe secret key", regexp.MustCompile(`\bsk_(?:live|test)_[A-Za-z0-9]{24}\b`)},
	{"Google API key", regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`)},
	{"JWT", regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{6,}\.[A-Za-z0-9_\-]{6,}\.[A-Za-z0-9_\-]{6,}\b`)},
	{"credential in URL", regexp.MustCompile(`\b[a-z][a-z0-9+\-.]*://[^/\s:@]+:[^/\s:@]+@`)},
	{"env-style secret", regexp.MustCompile(`(?i)\b(PASS(WORD)?|SECRET|API[_-]?KEY|TOKEN|AUTH|SESSION)[A-Z0-9_-]*\s*=\s*\S{8,}`)},
	{"Azure shared access key", regexp.MustCompile(`(?i)\bSharedAccessKey\s*=\s*[A-Za-z0-9+/=]{20,}`)},
}

// keyword followed by a long base64/hex-looking value
var entropyCandidate = regexp.MustCompile(`(?i)(password|secret|token|api[_-]?key|auth|session)[^A-Za-z0-9]{0,5}([A-Za-z0-9_\-+/=]{20,})`)

const entropyThreshold = 3.5

// entropy is the Shannon entropy of s in bits per byte.
func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	h := 0.0
	n := float64(len(s))
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// Scan returns every finding in text. The entropy heuristic only runs when
// no rule matched, to keep noise down.
func Scan(text string) []Finding {
	var out []Finding
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		for _, r := range rules {
			if r.re.MatchString(line) {
				out = append(out, Finding{Rule: r.name, Line: i + 1, Snippet: truncate(line, 120)})
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for i, line := range lines {
		for _, m := range entropyCandidate.FindAllStringSubmatch(line, -1) {
			if entropy(m[2]) >= entropyThreshold {
				out = append(out, Finding{Rule: "high-entropy secret-like value", Line: i + 1, Snippet: truncate(line, 120)})
			}
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// Brief summarises up to max findings, one per line.
func Brief(fs []Finding, max int) string {
	if max <= 0 {
		max = 5
	}
	var b strings.Builder
	for i, f := range fs {
		if i >= max {
			fmt.Fprintf(&b, "…and %d more\n", len(fs)-max)
			break
		}
		fmt.Fprintf(&b, "- %s (line %d)\n", f.Rule, f.Line)
	}
	return b.String()
}
