// Package normalizer cleans raw statement descriptions into canonical
// merchant names. Known subscription services map to a fixed name and a
// recurring flag so matching and suggestions work on stable spellings.
package normalizer

import (
	"regexp"
	"strings"
)

// Normalized is the result of normalizing one statement description.
type Normalized struct {
	Original  string `json:"original"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"` // matched a known subscription service
}

type pattern struct {
	re        *regexp.Regexp
	name      string
	recurring bool
}

// Normalizer maps raw statement descriptions to canonical merchant names.
type Normalizer struct {
	patterns []pattern
}

// New returns a Normalizer loaded with the built-in service patterns.
func New() *Normalizer {
	return &Normalizer{patterns: defaultPatterns()}
}

// Normalize cleans a raw description and resolves it against the known
// patterns. Unrecognized merchants fall back to a title-cased cleanup.
func (n *Normalizer) Normalize(raw string) Normalized {
	cleaned := cleanName(raw)

	for _, p := range n.patterns {
		if p.re.MatchString(cleaned) {
			return Normalized{Original: raw, Name: p.name, Recurring: p.recurring}
		}
	}

	return Normalized{Original: raw, Name: titleCase(cleaned)}
}

// AddPattern registers an extra pattern, checked after the built-ins.
func (n *Normalizer) AddPattern(expr, name string, recurring bool) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return err
	}
	n.patterns = append(n.patterns, pattern{re: re, name: name, recurring: recurring})
	return nil
}

var (
	// Bank noise around the merchant name.
	prefixes = []string{
		"COMPRA ", "COMPRAS ", "PAGAMENTO ", "PAG ", "PGO ",
		"TRF ", "TRANSF ", "TRANSFERENCIA ",
		"MB WAY ", "MBWAY ", "MULTIBANCO ",
		"VISA ", "MASTERCARD ", "MAESTRO ",
		"PURCHASE ", "PAYMENT ", "POS ", "DD ", "SEPA ",
	}
	leadingDate  = regexp.MustCompile(`^\d{1,2}/\d{1,2}\s+`)
	trailingRef  = regexp.MustCompile(`\s+\d{4,}$`)
	trailingDate = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/?$`)
	spaces       = regexp.MustCompile(`\s+`)
)

// cleanName strips bank prefixes, reference numbers and date fragments.
func cleanName(raw string) string {
	result := strings.TrimSpace(raw)
	result = leadingDate.ReplaceAllString(result, "")

	upper := strings.ToUpper(result)
	for _, prefix := range prefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	result = trailingRef.ReplaceAllString(result, "")
	result = trailingDate.ReplaceAllString(result, "")
	result = spaces.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

// defaultPatterns covers the subscription services we see on statements,
// then a handful of everyday merchants so non-subscription lines still
// display cleanly. More specific patterns come before their prefixes
// (Amazon Prime before Amazon, Uber Eats before Uber).
func defaultPatterns() []pattern {
	return []pattern{
		// Video streaming
		{regexp.MustCompile(`(?i)NETFLIX`), "Netflix", true},
		{regexp.MustCompile(`(?i)DISNEY\s*\+|DISNEY\s*PLUS`), "Disney+", true},
		{regexp.MustCompile(`(?i)HBO\s*MAX|\bMAX\.COM\b`), "Max", true},
		{regexp.MustCompile(`(?i)HULU`), "Hulu", true},
		{regexp.MustCompile(`(?i)AMAZON\s*PRIME|AMZN\s*PRIME|PRIME\s*VIDEO`), "Amazon Prime", true},
		{regexp.MustCompile(`(?i)PARAMOUNT\s*\+|PARAMOUNT\s*PLUS`), "Paramount+", true},
		{regexp.MustCompile(`(?i)CRUNCHYROLL`), "Crunchyroll", true},
		{regexp.MustCompile(`(?i)TWITCH`), "Twitch", true},

		// Music and audio
		{regexp.MustCompile(`(?i)SPOTIFY`), "Spotify", true},
		{regexp.MustCompile(`(?i)APPLE\s*MUSIC|APPLE\.COM/BILL|APL\*\s*ITUNES|ITUNES`), "Apple", true},
		{regexp.MustCompile(`(?i)YOUTUBE\s*PREMIUM|GOOGLE\s*YOUTUBE`), "YouTube Premium", true},
		{regexp.MustCompile(`(?i)TIDAL`), "Tidal", true},
		{regexp.MustCompile(`(?i)DEEZER`), "Deezer", true},
		{regexp.MustCompile(`(?i)AUDIBLE`), "Audible", true},

		// Cloud storage
		{regexp.MustCompile(`(?i)ICLOUD`), "iCloud", true},
		{regexp.MustCompile(`(?i)GOOGLE\s*ONE|GOOGLE\s*STORAGE`), "Google One", true},
		{regexp.MustCompile(`(?i)DROPBOX`), "Dropbox", true},

		// Software and tools
		{regexp.MustCompile(`(?i)ADOBE`), "Adobe", true},
		{regexp.MustCompile(`(?i)MICROSOFT\s*365|OFFICE\s*365`), "Microsoft 365", true},
		{regexp.MustCompile(`(?i)GITHUB`), "GitHub", true},
		{regexp.MustCompile(`(?i)OPENAI|CHATGPT`), "OpenAI", true},
		{regexp.MustCompile(`(?i)NOTION`), "Notion", true},
		{regexp.MustCompile(`(?i)FIGMA`), "Figma", true},
		{regexp.MustCompile(`(?i)1PASSWORD`), "1Password", true},
		{regexp.MustCompile(`(?i)NORDVPN`), "NordVPN", true},

		// Gaming
		{regexp.MustCompile(`(?i)XBOX\s*GAME\s*PASS|XBOX`), "Xbox", true},
		{regexp.MustCompile(`(?i)PLAYSTATION|PSN`), "PlayStation", true},
		{regexp.MustCompile(`(?i)NINTENDO`), "Nintendo", true},
		{regexp.MustCompile(`(?i)STEAM`), "Steam", true},

		// News and reading
		{regexp.MustCompile(`(?i)NYTIMES|NEW\s*YORK\s*TIMES`), "The New York Times", true},
		{regexp.MustCompile(`(?i)ECONOMIST`), "The Economist", true},
		{regexp.MustCompile(`(?i)MEDIUM\.COM|A\s*MEDIUM\s*CORP`), "Medium", true},
		{regexp.MustCompile(`(?i)SUBSTACK`), "Substack", true},
		{regexp.MustCompile(`(?i)PATREON`), "Patreon", true},

		// Health and learning
		{regexp.MustCompile(`(?i)PELOTON`), "Peloton", true},
		{regexp.MustCompile(`(?i)STRAVA`), "Strava", true},
		{regexp.MustCompile(`(?i)DUOLINGO`), "Duolingo", true},
		{regexp.MustCompile(`(?i)HEADSPACE`), "Headspace", true},
		{regexp.MustCompile(`(?i)MASTERCLASS`), "MasterClass", true},

		// Everyday merchants, cleaned but not treated as subscriptions
		{regexp.MustCompile(`(?i)AMAZON|AMZN`), "Amazon", false},
		{regexp.MustCompile(`(?i)PAYPAL`), "PayPal", false},
		{regexp.MustCompile(`(?i)UBER\s*EATS`), "Uber Eats", false},
		{regexp.MustCompile(`(?i)\bUBER\b`), "Uber", false},
		{regexp.MustCompile(`(?i)STARBUCKS`), "Starbucks", false},
		{regexp.MustCompile(`(?i)MC\s*DONALDS|MCDONALD`), "McDonald's", false},
		{regexp.MustCompile(`(?i)CONTINENTE`), "Continente", false},
		{regexp.MustCompile(`(?i)PINGO\s*DOCE`), "Pingo Doce", false},
		{regexp.MustCompile(`(?i)LIDL`), "Lidl", false},
		{regexp.MustCompile(`(?i)VODAFONE`), "Vodafone", false},
	}
}
