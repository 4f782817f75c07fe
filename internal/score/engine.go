// Package score ranks normalized jobs against the user's stated preferences.
// Scoring is pure and deterministic: the same job and config always produce
// the same score and the same ordered reason list.
package score

import (
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/config"
	"github.com/amishk599/jobradar/internal/model"
)

// Engine computes a weighted match score in [0,1] for each job.
type Engine struct {
	cfg config.ScoringConfig
	now func() time.Time
}

// NewEngine creates an Engine. now is injectable for tests.
func NewEngine(cfg config.ScoringConfig, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, now: now}
}

// Score evaluates one job. Exclusion rules veto first: a blocklisted title
// term or an excluded keyword zeroes the score with a single reason,
// regardless of how strong the other factors are. Otherwise the factor
// credits are combined by their normalized weights, and reasons are emitted
// in a fixed factor order.
func (e *Engine) Score(job model.Job) (float64, []string) {
	title := strings.ToLower(job.Title)
	haystack := title + " " + strings.ToLower(job.Description)

	if term := firstHit(title, e.cfg.TitleBlocklist); term != "" {
		return 0, []string{fmt.Sprintf("excluded: title contains %q", term)}
	}
	if term := firstHit(haystack, e.cfg.KeywordsExclude); term != "" {
		return 0, []string{fmt.Sprintf("excluded: matched keyword %q", term)}
	}

	w := e.cfg.Weights
	total := w.Sum()

	var score float64
	reasons := make([]string, 0, 5)

	credit, reason := e.titleFactor(title, haystack)
	score += w.Title * credit
	reasons = append(reasons, reason)

	credit, reason = e.salaryFactor(job)
	score += w.Salary * credit
	reasons = append(reasons, reason)

	credit, reason = e.locationFactor(job)
	score += w.Location * credit
	reasons = append(reasons, reason)

	credit, reason = e.companyFactor(job)
	score += w.Company * credit
	reasons = append(reasons, reason)

	credit, reason = e.recencyFactor(job)
	score += w.Recency * credit
	reasons = append(reasons, reason)

	return clamp01(score / total), reasons
}

// ScoreAll scores jobs in place.
func (e *Engine) ScoreAll(jobs []model.Job) {
	for i := range jobs {
		jobs[i].MatchScore, jobs[i].ScoreReasons = e.Score(jobs[i])
	}
}

// titleFactor blends allowlist membership (70%) with boost-keyword density
// (30%). Empty lists are neutral: no allowlist accepts every title, no boost
// keywords grant the full boost part.
func (e *Engine) titleFactor(title, haystack string) (float64, string) {
	allowPart := 1.0
	allowNote := "no title allowlist"
	if len(e.cfg.TitleAllowlist) > 0 {
		if term := firstHit(title, e.cfg.TitleAllowlist); term != "" {
			allowNote = fmt.Sprintf("title matches %q", term)
		} else {
			allowPart = 0
			allowNote = "title not in allowlist"
		}
	}

	boostPart := 1.0
	boostNote := "no boost keywords"
	if len(e.cfg.KeywordsBoost) > 0 {
		hits := countHits(haystack, e.cfg.KeywordsBoost)
		boostPart = minFloat(1, float64(hits)/2)
		boostNote = fmt.Sprintf("%d boost keyword(s)", hits)
	}

	credit := 0.7*allowPart + 0.3*boostPart
	return credit, fmt.Sprintf("title: %s, %s (credit %.2f)", allowNote, boostNote, credit)
}

// salaryFactor compares the posting's top-of-range salary to the floor.
// A missing salary earns the configured unknown-salary credit rather than
// being treated as below the floor.
func (e *Engine) salaryFactor(job model.Job) (float64, string) {
	if e.cfg.SalaryFloor <= 0 {
		return 1, "salary: no floor configured (credit 1.00)"
	}

	best := job.SalaryMax
	if best == nil {
		best = job.SalaryMin
	}
	if best == nil {
		credit := e.cfg.UnknownSalaryCredit
		return credit, fmt.Sprintf("salary: not listed (credit %.2f)", credit)
	}
	if *best < e.cfg.SalaryFloor {
		return 0, fmt.Sprintf("salary: %.0f below floor %.0f (credit 0.00)", *best, e.cfg.SalaryFloor)
	}
	return 1, fmt.Sprintf("salary: %.0f meets floor %.0f (credit 1.00)", *best, e.cfg.SalaryFloor)
}

// locationFactor grants full credit when the job's work mode is allowed,
// half credit when the mode is unknown, and nothing when it is disallowed.
func (e *Engine) locationFactor(job model.Job) (float64, string) {
	allowed := map[model.WorkMode]bool{
		model.WorkModeRemote: e.cfg.Location.AllowRemote,
		model.WorkModeHybrid: e.cfg.Location.AllowHybrid,
		model.WorkModeOnsite: e.cfg.Location.AllowOnsite,
	}

	switch {
	case job.WorkMode == model.WorkModeUnknown:
		return 0.5, "location: work mode unknown (credit 0.50)"
	case allowed[job.WorkMode]:
		return 1, fmt.Sprintf("location: %s allowed (credit 1.00)", job.WorkMode)
	}
	return 0, fmt.Sprintf("location: %s not allowed (credit 0.00)", job.WorkMode)
}

// companyFactor gives full credit for allowlisted companies, zero for
// blocklisted ones, and half credit for companies the user has no opinion on.
func (e *Engine) companyFactor(job model.Job) (float64, string) {
	company := strings.ToLower(job.Company)
	if term := firstHit(company, e.cfg.CompanyBlocklist); term != "" {
		return 0, fmt.Sprintf("company: blocklisted via %q (credit 0.00)", term)
	}
	if term := firstHit(company, e.cfg.CompanyAllowlist); term != "" {
		return 1, fmt.Sprintf("company: allowlisted via %q (credit 1.00)", term)
	}
	return 0.5, "company: neutral (credit 0.50)"
}

// recencyFactor is full within the window, decays linearly to zero at twice
// the window, and is half credit when the posting date is unknown.
func (e *Engine) recencyFactor(job model.Job) (float64, string) {
	if job.PostedAt == nil {
		return 0.5, "recency: posted date unknown (credit 0.50)"
	}

	window := time.Duration(e.cfg.RecencyWindowDays) * 24 * time.Hour
	age := e.now().Sub(*job.PostedAt)
	days := int(age.Hours() / 24)

	switch {
	case age <= window:
		return 1, fmt.Sprintf("recency: posted %dd ago, within %dd window (credit 1.00)", days, e.cfg.RecencyWindowDays)
	case age >= 2*window:
		return 0, fmt.Sprintf("recency: posted %dd ago, stale (credit 0.00)", days)
	}

	credit := 1 - float64(age-window)/float64(window)
	return credit, fmt.Sprintf("recency: posted %dd ago (credit %.2f)", days, credit)
}

// firstHit returns the first term (in config order) contained in haystack.
// Config order keeps the emitted reason deterministic.
func firstHit(haystack string, terms []string) string {
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}

func countHits(haystack string, terms []string) int {
	n := 0
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" && strings.Contains(haystack, strings.ToLower(t)) {
			n++
		}
	}
	return n
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
