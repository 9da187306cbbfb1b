// Package classify maps event tag text to domain flags and a single domain
// label.
package classify

import (
	"regexp"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

func tagPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

var (
	reElections       = tagPattern("Elections")
	reGlobalElections = tagPattern("Global Elections")
	rePolitics        = tagPattern("Politics")
	reCrypto          = tagPattern("Crypto")
	reCryptoPrices    = tagPattern("Crypto Prices")
	reTech            = tagPattern("Tech")
	reFinance         = tagPattern("Finance")
	reSports          = tagPattern("Sports")
	reCulture         = tagPattern("Culture")
)

// Flags matches tags against the nine known tag names. Matching is case
// sensitive and bounded by word boundaries, so "Cryptocurrency" does not set
// Crypto. Empty text sets nothing.
func Flags(tags string) domain.DomainFlags {
	if tags == "" {
		return domain.DomainFlags{}
	}
	return domain.DomainFlags{
		Elections:       reElections.MatchString(tags),
		GlobalElections: reGlobalElections.MatchString(tags),
		Politics:        rePolitics.MatchString(tags),
		Crypto:          reCrypto.MatchString(tags),
		CryptoPrices:    reCryptoPrices.MatchString(tags),
		Tech:            reTech.MatchString(tags),
		Finance:         reFinance.MatchString(tags),
		Sports:          reSports.MatchString(tags),
		Culture:         reCulture.MatchString(tags),
	}
}

type rule struct {
	match func(domain.DomainFlags) bool
	label string
}

// priority is evaluated top to bottom; the first matching rule names the
// domain.
var priority = []rule{
	{func(f domain.DomainFlags) bool { return f.Sports }, domain.DomainSports},
	{func(f domain.DomainFlags) bool { return f.GlobalElections || f.Elections }, domain.DomainElections},
	{func(f domain.DomainFlags) bool { return f.Politics }, domain.DomainPolitics},
	{func(f domain.DomainFlags) bool { return f.CryptoPrices }, domain.DomainCryptoPrices},
	{func(f domain.DomainFlags) bool { return f.Crypto }, domain.DomainCrypto},
	{func(f domain.DomainFlags) bool { return f.Tech }, domain.DomainTech},
	{func(f domain.DomainFlags) bool { return f.Finance }, domain.DomainFinance},
	{func(f domain.DomainFlags) bool { return f.Culture }, domain.DomainCulture},
}

// Domain returns the label of the first rule matched by f, or Other.
func Domain(f domain.DomainFlags) string {
	for _, r := range priority {
		if r.match(f) {
			return r.label
		}
	}
	return domain.DomainOther
}

// Labels lists every label Domain can return, in priority order.
func Labels() []string {
	out := make([]string, 0, len(priority)+1)
	for _, r := range priority {
		out = append(out, r.label)
	}
	return append(out, domain.DomainOther)
}
