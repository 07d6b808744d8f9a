package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"brokersync/internal/models"
)

const (
	// autoAcceptScore is the confidence at or above which a catalog match
	// is accepted without user review.
	autoAcceptScore = 90
	// maxCandidates caps the ranked candidate list per resolution.
	maxCandidates = 10
)

// exchangeSuffixRegex matches symbols already carrying a canonical exchange
// suffix: a trailing dot plus one to four letters.
var exchangeSuffixRegex = regexp.MustCompile(`^[A-Z0-9&_-]+\.[A-Z]{1,4}$`)

// resolverService proposes canonical tickers for broker symbols using three
// tiers: suffix pattern, learned registry, then fuzzy catalog matching.
type resolverService struct {
	catalog  CatalogServicer
	registry RegistryServicer
}

// NewResolverService creates a new ResolverServicer.
func NewResolverService(catalog CatalogServicer, registry RegistryServicer) ResolverServicer {
	return &resolverService{catalog: catalog, registry: registry}
}

// Resolve classifies a broker symbol and returns ranked candidates. Tiers
// short-circuit at the first confident hit; the pattern tier never consults
// the registry or catalog and is never persisted.
func (s *resolverService) Resolve(brokerSymbol string) Resolution {
	symbol := normalizeSymbol(brokerSymbol)

	if exchangeSuffixRegex.MatchString(symbol) {
		candidate := models.MappingCandidate{Ticker: symbol, Label: symbol, Score: 100}
		return Resolution{
			Status:   models.MappingStatusAuto,
			Source:   models.MappingSourcePattern,
			Proposed: &candidate,
			Selected: symbol,
		}
	}

	if mapping, err := s.registry.Get(symbol); err == nil {
		candidate := models.MappingCandidate{
			Ticker: mapping.YahooTicker,
			Label:  mapping.YahooTicker,
			Score:  mapping.Confidence,
		}
		return Resolution{
			Status:   models.MappingStatusAuto,
			Source:   models.MappingSourceRegistry,
			Proposed: &candidate,
			Selected: mapping.YahooTicker,
		}
	}

	candidates := s.rankCatalog(symbol)
	if len(candidates) == 0 {
		return Resolution{Status: models.MappingStatusUnresolved}
	}

	top := candidates[0]
	res := Resolution{
		Source:       models.MappingSourceCatalog,
		Proposed:     &top,
		Alternatives: candidates[1:],
	}
	if top.Score >= autoAcceptScore {
		res.Status = models.MappingStatusAuto
		res.Selected = top.Ticker
	} else {
		res.Status = models.MappingStatusReview
	}
	return res
}

// rankCatalog scores every catalog entry against the symbol and returns the
// top candidates in descending score order.
func (s *resolverService) rankCatalog(symbol string) []models.MappingCandidate {
	entries := s.catalog.Entries()

	var candidates []models.MappingCandidate
	for _, entry := range entries {
		score := scoreCandidate(symbol, entry)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, models.MappingCandidate{
			Ticker: strings.ToUpper(entry.Ticker),
			Label:  entry.Name,
			Score:  score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// scoreCandidate computes a 0-100 composite match score between a broker
// symbol and a catalog entry: an exact ticker-base match is certain; other
// scores blend edit-distance similarity with prefix, substring, and display
// name bonuses.
func scoreCandidate(symbol string, entry models.CatalogEntry) int {
	base := tickerBase(entry.Ticker)
	if base == "" || symbol == "" {
		return 0
	}
	if symbol == base {
		return 100
	}

	score := 60 * similarity(symbol, base)

	if strings.HasPrefix(base, symbol) {
		score += 25
	} else if strings.Contains(base, symbol) {
		score += 15
	}

	name := strings.ToUpper(entry.Name)
	if name != "" && strings.Contains(name, symbol) {
		score += 10
	}

	best := 0.0
	for _, token := range strings.Fields(name) {
		if sim := similarity(symbol, token); sim > best {
			best = sim
		}
	}
	score += 15 * best

	if score > 99 {
		score = 99
	}
	return int(score)
}

// tickerBase strips the exchange suffix from a canonical ticker.
func tickerBase(ticker string) string {
	ticker = normalizeSymbol(ticker)
	if idx := strings.LastIndex(ticker, "."); idx > 0 {
		return ticker[:idx]
	}
	return ticker
}

// similarity returns a 0-1 edit-distance similarity between two strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(distance)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}
