package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

type flagCase struct {
	name string
	rank int
	set  func(*domain.DomainFlags)
}

var flagCases = []flagCase{
	{"Sports", 0, func(f *domain.DomainFlags) { f.Sports = true }},
	{"Global Elections", 1, func(f *domain.DomainFlags) { f.GlobalElections = true }},
	{"Elections", 1, func(f *domain.DomainFlags) { f.Elections = true }},
	{"Politics", 2, func(f *domain.DomainFlags) { f.Politics = true }},
	{"Crypto Prices", 3, func(f *domain.DomainFlags) { f.CryptoPrices = true }},
	{"Crypto", 4, func(f *domain.DomainFlags) { f.Crypto = true }},
	{"Tech", 5, func(f *domain.DomainFlags) { f.Tech = true }},
	{"Finance", 6, func(f *domain.DomainFlags) { f.Finance = true }},
	{"Culture", 7, func(f *domain.DomainFlags) { f.Culture = true }},
}

var rankLabels = []string{"Sports", "Elections", "Politics", "Crypto Prices", "Crypto", "Tech", "Finance", "Culture"}

func TestDomain_SingleFlag(t *testing.T) {
	for _, c := range flagCases {
		var f domain.DomainFlags
		c.set(&f)
		assert.Equal(t, rankLabels[c.rank], Domain(f), c.name)
	}
	assert.Equal(t, "Other", Domain(domain.DomainFlags{}))
}

func TestDomain_PairwisePriority(t *testing.T) {
	for i, a := range flagCases {
		for _, b := range flagCases[i+1:] {
			var f domain.DomainFlags
			a.set(&f)
			b.set(&f)
			want := rankLabels[min(a.rank, b.rank)]
			assert.Equal(t, want, Domain(f), "%s + %s", a.name, b.name)
		}
	}
}

func TestDomain_SportsBeatsPolitics(t *testing.T) {
	assert.Equal(t, "Sports", Domain(Flags("Politics|Sports")))
}

func TestFlags_WordBoundaryAndCase(t *testing.T) {
	f := Flags("Crypto Prices|Bitcoin")
	assert.True(t, f.Crypto)
	assert.True(t, f.CryptoPrices)
	assert.Equal(t, "Crypto Prices", Domain(f))

	f = Flags("Cryptocurrency|politics|FinanceX")
	assert.False(t, f.Crypto)
	assert.False(t, f.Politics)
	assert.False(t, f.Finance)
	assert.Equal(t, "Other", Domain(f))

	f = Flags(`["Global Elections", "World"]`)
	assert.True(t, f.GlobalElections)
	assert.True(t, f.Elections)
	assert.Equal(t, "Elections", Domain(f))
}

func TestFlags_EmptyText(t *testing.T) {
	assert.Equal(t, domain.DomainFlags{}, Flags(""))
}

func TestLabels_PriorityOrder(t *testing.T) {
	assert.Equal(t, append(rankLabels, "Other"), Labels())
}
