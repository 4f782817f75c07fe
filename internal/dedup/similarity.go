package dedup

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/amishk599/jobradar/internal/model"
)

// Component weights of the combined fuzzy similarity.
const (
	titleWeight    = 0.60
	companyWeight  = 0.25
	locationWeight = 0.15
)

// Similarity scores how likely two records describe the same posting, in
// [0,1]. A company near-match gates the comparison: different companies can
// share a title ("Software Engineer") without being the same job.
func Similarity(a, b model.Job) float64 {
	companySim := companySimilarity(a.Company, b.Company)
	if companySim == 0 {
		return 0
	}

	titleSim := levenshtein.Similarity(norm(a.Title), norm(b.Title), nil)

	return titleWeight*titleSim + companyWeight*companySim + locationWeight*locationCompat(a, b)
}

// companySimilarity is 1 for an exact normalized match, 0.9 for a near match
// (edit distance ≤ 2, tolerating "Acme" vs "Acme Inc" style suffixes), else 0.
func companySimilarity(a, b string) float64 {
	na, nb := norm(stripCompanySuffix(a)), norm(stripCompanySuffix(b))
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if levenshtein.Distance(na, nb, nil) <= 2 {
		return 0.9
	}
	return 0
}

var companySuffixes = []string{" inc", " inc.", " llc", " ltd", " ltd.", " gmbh", " corp", " corp.", " co.", " limited"}

func stripCompanySuffix(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range companySuffixes {
		lower = strings.TrimSuffix(lower, suffix)
	}
	return lower
}

// locationCompat is 1 when the locations agree, 0.5 when one side is too
// vague to contradict the other, 0 when they conflict.
func locationCompat(a, b model.Job) float64 {
	la, lb := norm(a.Location), norm(b.Location)

	switch {
	case la == lb && la != "":
		return 1
	case a.WorkMode == model.WorkModeRemote && b.WorkMode == model.WorkModeRemote:
		return 1
	case la == "" || lb == "":
		return 0.5
	case strings.Contains(la, lb) || strings.Contains(lb, la):
		return 1
	}
	return 0
}

func norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
