package score

import (
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/config"
	"github.com/amishk599/jobradar/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		TitleAllowlist:      []string{"software engineer", "backend engineer"},
		TitleBlocklist:      []string{"sales"},
		KeywordsBoost:       []string{"go", "kubernetes", "distributed"},
		KeywordsExclude:     []string{"clearance required"},
		Location:            config.LocationPrefs{AllowRemote: true, AllowHybrid: true, AllowOnsite: false},
		SalaryFloor:         120000,
		RecencyWindowDays:   14,
		CompanyBlocklist:    []string{"badcorp"},
		UnknownSalaryCredit: 1.0,
		AlertThreshold:      0.75,
		Weights:             config.DefaultWeights,
	}
}

func salaryPtr(v float64) *float64 { return &v }

func strongMatch() model.Job {
	posted := fixedNow.Add(-3 * 24 * time.Hour)
	return model.Job{
		Title:       "Senior Software Engineer",
		Company:     "Acme",
		Location:    "Remote",
		WorkMode:    model.WorkModeRemote,
		Description: "Build distributed systems in Go on Kubernetes.",
		SalaryMin:   salaryPtr(150000),
		SalaryMax:   salaryPtr(180000),
		PostedAt:    &posted,
	}
}

func TestScoreStrongMatchCrossesThreshold(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	score, reasons := e.Score(strongMatch())
	if score < 0.9 {
		t.Fatalf("score = %.3f, want >= 0.9; reasons: %v", score, reasons)
	}
	if len(reasons) != 5 {
		t.Fatalf("got %d reasons, want 5: %v", len(reasons), reasons)
	}
}

func TestScoreAllowlistOnlyConfigStillCrossesThreshold(t *testing.T) {
	// A config with only a title allowlist must not cap the title factor:
	// having no boost keywords is neutral, not a missing signal.
	cfg := testConfig()
	cfg.KeywordsBoost = nil
	e := NewEngine(cfg, func() time.Time { return fixedNow })

	score, reasons := e.Score(strongMatch())
	if score < 0.9 {
		t.Fatalf("score = %.3f, want >= 0.9 without boost keywords; reasons: %v", score, reasons)
	}
	if !strings.Contains(reasons[0], "no boost keywords") {
		t.Errorf("title reason = %q, want it to note the absent boost list", reasons[0])
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })
	job := strongMatch()

	firstScore, firstReasons := e.Score(job)
	for i := 0; i < 10; i++ {
		score, reasons := e.Score(job)
		if score != firstScore {
			t.Fatalf("run %d: score %.6f != %.6f", i, score, firstScore)
		}
		if len(reasons) != len(firstReasons) {
			t.Fatalf("run %d: reason count changed", i)
		}
		for j := range reasons {
			if reasons[j] != firstReasons[j] {
				t.Fatalf("run %d: reason %d changed: %q != %q", i, j, reasons[j], firstReasons[j])
			}
		}
	}
}

func TestScoreTitleBlocklistVetoes(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	job := strongMatch()
	job.Title = "Sales Engineer"

	score, reasons := e.Score(job)
	if score != 0 {
		t.Fatalf("score = %.3f, want 0", score)
	}
	if len(reasons) != 1 || !strings.HasPrefix(reasons[0], "excluded:") {
		t.Fatalf("reasons = %v, want single exclusion reason", reasons)
	}
}

func TestScoreExcludeKeywordVetoesDescription(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	job := strongMatch()
	job.Description += " Active clearance required."

	score, reasons := e.Score(job)
	if score != 0 {
		t.Fatalf("score = %.3f, want 0; reasons: %v", score, reasons)
	}
}

func TestScoreSalaryBelowFloorZerosFactorOnly(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	job := strongMatch()
	job.SalaryMin = salaryPtr(80000)
	job.SalaryMax = salaryPtr(100000)

	score, _ := e.Score(job)

	// Only the 0.25 salary weight should be lost relative to the strong match.
	base, _ := e.Score(strongMatch())
	if diff := base - score; diff < 0.24 || diff > 0.26 {
		t.Fatalf("salary factor delta = %.3f, want ~0.25", diff)
	}
}

func TestScoreUnknownSalaryNotPenalizedByDefault(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	job := strongMatch()
	job.SalaryMin, job.SalaryMax = nil, nil

	score, _ := e.Score(job)
	base, _ := e.Score(strongMatch())
	if score != base {
		t.Fatalf("unknown salary scored %.3f, want %.3f (full credit)", score, base)
	}
}

func TestScoreUnknownSalaryCreditConfigurable(t *testing.T) {
	cfg := testConfig()
	cfg.UnknownSalaryCredit = 0.4
	e := NewEngine(cfg, func() time.Time { return fixedNow })

	job := strongMatch()
	job.SalaryMin, job.SalaryMax = nil, nil

	score, _ := e.Score(job)
	base, _ := e.Score(strongMatch())
	want := base - 0.25*(1-0.4)
	if diff := score - want; diff < -0.001 || diff > 0.001 {
		t.Fatalf("score = %.3f, want %.3f", score, want)
	}
}

func TestScoreDisallowedWorkMode(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	job := strongMatch()
	job.WorkMode = model.WorkModeOnsite

	score, _ := e.Score(job)
	base, _ := e.Score(strongMatch())
	if diff := base - score; diff < 0.19 || diff > 0.21 {
		t.Fatalf("location factor delta = %.3f, want ~0.20", diff)
	}
}

func TestScoreRecencyDecay(t *testing.T) {
	e := NewEngine(testConfig(), func() time.Time { return fixedNow })

	cases := []struct {
		name    string
		ageDays int
		credit  float64
	}{
		{"fresh", 3, 1},
		{"edge of window", 14, 1},
		{"midway", 21, 0.5},
		{"stale", 40, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posted := fixedNow.Add(-time.Duration(tc.ageDays) * 24 * time.Hour)
			job := strongMatch()
			job.PostedAt = &posted

			credit, _ := e.recencyFactor(job)
			if diff := credit - tc.credit; diff < -0.001 || diff > 0.001 {
				t.Fatalf("recency credit = %.3f, want %.3f", credit, tc.credit)
			}
		})
	}
}

func TestScoreWeightsNormalized(t *testing.T) {
	cfg := testConfig()
	// Doubled weights must not change the score.
	cfg.Weights = config.FactorWeights{Title: 0.80, Salary: 0.50, Location: 0.40, Company: 0.20, Recency: 0.10}
	doubled := NewEngine(cfg, func() time.Time { return fixedNow })
	base := NewEngine(testConfig(), func() time.Time { return fixedNow })

	got, _ := doubled.Score(strongMatch())
	want, _ := base.Score(strongMatch())
	if diff := got - want; diff < -0.0001 || diff > 0.0001 {
		t.Fatalf("doubled weights scored %.4f, want %.4f", got, want)
	}
}
