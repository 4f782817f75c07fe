// Package ghost estimates how likely a posting is not a real, fillable role.
// The suspicion score is independent of the match score: a job can rank high
// for the user and still look like a ghost listing.
package ghost

import (
	"strings"
	"time"

	"github.com/agext/levenshtein"

	"github.com/amishk599/jobradar/internal/model"
)

// Signal weights. They sum to 1, so the suspicion score stays in [0,1].
const (
	stalenessWeight  = 0.30
	repostWeight     = 0.25
	vagueWeight      = 0.20
	companyDupWeight = 0.15
	noSalaryWeight   = 0.10
)

// StaleAfterDays is the posting age at which the staleness signal starts.
const StaleAfterDays = 45

// Severity bucket cutoffs.
const (
	lowCutoff    = 0.20
	mediumCutoff = 0.45
	highCutoff   = 0.70
)

// fillerPhrases are description cliches that correlate with postings kept
// open to collect resumes rather than to hire.
var fillerPhrases = []string{
	"fast-paced environment",
	"self-starter",
	"wear many hats",
	"rockstar",
	"ninja",
	"dynamic environment",
	"competitive salary",
	"work hard play hard",
	"like a family",
}

// Detector scores ghost-likelihood signals.
type Detector struct {
	now func() time.Time
}

// NewDetector creates a Detector. now is injectable for tests.
func NewDetector(now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{now: now}
}

// DetectAll scores every job in place. The same-company duplicate signal is
// computed over the whole batch, so it must see all jobs of a run at once.
func (d *Detector) DetectAll(jobs []model.Job) {
	counts := companyDupCounts(jobs)
	for i := range jobs {
		jobs[i].GhostScore = d.Detect(jobs[i], counts[i])
		jobs[i].GhostSeverity = Bucket(jobs[i].GhostScore)
	}
}

// Detect scores one job. companyDups is the number of near-identical postings
// the same company has in the current batch, including this one.
func (d *Detector) Detect(job model.Job, companyDups int) float64 {
	score := stalenessWeight*d.stalenessSignal(job) +
		repostWeight*repostSignal(job) +
		vagueWeight*vagueSignal(job) +
		companyDupWeight*companyDupSignal(companyDups) +
		noSalaryWeight*noSalarySignal(job)

	if score > 1 {
		score = 1
	}
	return score
}

// Bucket maps a suspicion score to its severity label.
func Bucket(score float64) model.Severity {
	switch {
	case score >= highCutoff:
		return model.SeverityHigh
	case score >= mediumCutoff:
		return model.SeverityMedium
	case score >= lowCutoff:
		return model.SeverityLow
	}
	return model.SeverityNone
}

// stalenessSignal ramps from 0 at the threshold age to 1 at twice the
// threshold. FirstSeen stands in when the posting date is unknown.
func (d *Detector) stalenessSignal(job model.Job) float64 {
	ref := job.FirstSeen
	if job.PostedAt != nil {
		ref = *job.PostedAt
	}
	if ref.IsZero() {
		return 0
	}

	ageDays := d.now().Sub(ref).Hours() / 24
	if ageDays <= StaleAfterDays {
		return 0
	}
	return minFloat(1, (ageDays-StaleAfterDays)/StaleAfterDays)
}

// repostSignal grows with how often the same content has reappeared.
// Five sightings saturate the signal.
func repostSignal(job model.Job) float64 {
	if job.TimesSeen <= 1 {
		return 0
	}
	return minFloat(1, float64(job.TimesSeen-1)/4)
}

// vagueSignal counts filler phrases; two saturate it. An empty description
// is maximally vague.
func vagueSignal(job model.Job) float64 {
	desc := strings.ToLower(job.Description)
	if strings.TrimSpace(desc) == "" {
		return 1
	}

	hits := 0
	for _, p := range fillerPhrases {
		if strings.Contains(desc, p) {
			hits++
		}
	}
	return minFloat(1, 0.5*float64(hits))
}

func companyDupSignal(companyDups int) float64 {
	if companyDups <= 1 {
		return 0
	}
	return minFloat(1, float64(companyDups-1)/3)
}

func noSalarySignal(job model.Job) float64 {
	if job.SalaryMin == nil && job.SalaryMax == nil {
		return 1
	}
	return 0
}

// companyDupCounts returns, for each job, how many postings in the batch
// share its company and a near-identical title.
func companyDupCounts(jobs []model.Job) []int {
	byCompany := make(map[string][]int)
	for i, j := range jobs {
		key := normString(j.Company)
		byCompany[key] = append(byCompany[key], i)
	}

	counts := make([]int, len(jobs))
	for _, idxs := range byCompany {
		for _, i := range idxs {
			n := 0
			for _, j := range idxs {
				if titlesNearIdentical(jobs[i].Title, jobs[j].Title) {
					n++
				}
			}
			counts[i] = n
		}
	}
	return counts
}

func titlesNearIdentical(a, b string) bool {
	return levenshtein.Similarity(normString(a), normString(b), nil) >= 0.9
}

func normString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
