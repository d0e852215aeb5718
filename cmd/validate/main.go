// Command validate checks a model bundle end to end: bundle shape, scaler
// round-trip, risk assignment totality, result schema, and optionally a
// set of golden fixtures with known classifications.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -bundle data/mock/flood_model_k3.json \
//	  -fixtures data/mock/classified_observations.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/kmeans"
)

// fixtureRow is one golden observation with its expected classification.
type fixtureRow struct {
	StationID        string  `json:"station_id"`
	District         string  `json:"district"`
	RainfallMM       float64 `json:"rainfall_mm"`
	ElevationM       float64 `json:"elevation_m"`
	ExpectedCluster  int     `json:"expected_cluster"`
	ExpectedCategory string  `json:"expected_category"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	bundlePath := flag.String("bundle", "", "path to the model bundle JSON")
	fixturesPath := flag.String("fixtures", "", "optional path to golden classification fixtures")
	flag.Parse()

	if *bundlePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*bundlePath, *fixturesPath); code != 0 {
		os.Exit(code)
	}
}

func run(bundlePath, fixturesPath string) int {
	// Fixed clock so sample results are reproducible across runs.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Flood Model Bundle Validation ===")
	fmt.Println()

	data, err := os.ReadFile(bundlePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read bundle: %v\n", err)
		return 1
	}
	var bundle kmeans.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse bundle: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{validateBundleShape(&bundle)}

	if phases[0].passed() {
		scaler, model, err := kmeans.NewFromBundle(&bundle)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: build engine: %v\n", err)
			return 1
		}

		assignPhase, assignment := validateAssignment(&bundle, scaler, model)
		phases = append(phases, validateScalerRoundTrip(scaler, &bundle), assignPhase)

		if assignment != nil {
			clf := domain.NewClassifier(scaler, model, assignment)
			phases = append(phases, validateResultSchema(clf, assignment))
			if fixturesPath != "" {
				phases = append(phases, validateFixtures(clf, fixturesPath))
			}
		}
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	trained := "unknown"
	if !bundle.TrainedAt.IsZero() {
		trained = bundle.TrainedAt.Format(time.RFC3339)
	}
	fmt.Println()
	fmt.Printf("Bundle: %d clusters, %d features, trained %s\n",
		len(bundle.Centers), kmeans.FeatureCount, trained)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Bundle Shape ──
// Validates bundle internal consistency via the same checks the service
// applies at load time.

func validateBundleShape(bundle *kmeans.Bundle) *phase {
	p := &phase{name: "Phase 1: Bundle Shape"}

	if err := bundle.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}
	if !bundle.TrainedAt.IsZero() && bundle.TrainedAt.After(time.Now()) {
		p.errorf("trained_at %s is in the future", bundle.TrainedAt.Format(time.RFC3339))
	}
	return p
}

// ── Phase 2: Scaler Round-Trip ──
// Validates that InverseTransform then Transform lands back on every
// center within float tolerance.

func validateScalerRoundTrip(scaler *kmeans.StandardScaler, bundle *kmeans.Bundle) *phase {
	p := &phase{name: "Phase 2: Scaler Round-Trip"}

	for i, center := range bundle.Centers {
		raw, err := scaler.InverseTransform(center)
		if err != nil {
			p.errorf("center %d: inverse transform: %v", i, err)
			continue
		}
		back, err := scaler.Transform(raw)
		if err != nil {
			p.errorf("center %d: transform: %v", i, err)
			continue
		}
		for j := range center {
			if math.Abs(back[j]-center[j]) > 1e-9 {
				p.errorf("center %d feature %d: round-trip drifted %g -> %g", i, j, center[j], back[j])
			}
		}
	}
	return p
}

// ── Phase 3: Assignment Totality ──
// Validates that every cluster gets a category, that ranks follow the
// elevation order, and that each center classifies as itself.

func validateAssignment(bundle *kmeans.Bundle, scaler *kmeans.StandardScaler, model *kmeans.Model) (*phase, *domain.RiskAssignment) {
	p := &phase{name: "Phase 3: Assignment Totality"}

	centers, err := model.RawCenters(scaler)
	if err != nil {
		p.errorf("raw centers: %v", err)
		return p, nil
	}
	assignment, err := domain.BuildAssignment(centers, domain.DefaultSeverityScale())
	if err != nil {
		p.errorf("build assignment: %v", err)
		return p, nil
	}

	for _, c := range centers {
		if _, ok := assignment.Category(c.ClusterID); !ok {
			p.errorf("cluster %d has no category", c.ClusterID)
		}
	}

	ordered := assignment.Centers()
	for i := range ordered {
		if ordered[i].Category.Rank != i {
			p.errorf("position %d carries rank %d", i, ordered[i].Category.Rank)
		}
		if i > 0 && ordered[i].ElevationM < ordered[i-1].ElevationM {
			p.errorf("position %d: elevation %g below previous %g",
				i, ordered[i].ElevationM, ordered[i-1].ElevationM)
		}
	}

	for i, normalized := range bundle.Centers {
		got, err := model.Predict(normalized)
		if err != nil {
			p.errorf("predict center %d: %v", i, err)
		} else if got != i {
			p.errorf("center %d predicts as cluster %d", i, got)
		}
	}

	return p, assignment
}

// ── Phase 4: Result Schema ──
// Validates that a classified sample produces a complete, JSON-stable
// result and a well-formed output message.

func validateResultSchema(clf *domain.Classifier, assignment *domain.RiskAssignment) *phase {
	p := &phase{name: "Phase 4: Result Schema"}

	most := assignment.Centers()[0]
	sample := domain.Observation{
		RainfallMM: most.RainfallMM,
		ElevationM: most.ElevationM,
		StationID:  "VALIDATE-001",
	}

	result, err := clf.Classify(sample)
	if err != nil {
		p.errorf("classify sample: %v", err)
		return p
	}

	if result.Category.Name == "" {
		p.errorf("category name is empty")
	}
	if !strings.HasPrefix(result.Category.Color, "#") {
		p.errorf("category color %q is not a hex color", result.Category.Color)
	}
	if len(result.Centers) != assignment.Size() {
		p.errorf("result has %d centers, assignment has %d", len(result.Centers), assignment.Size())
	}
	if result.ClassifiedAt.IsZero() {
		p.errorf("classified_at is zero")
	}
	for _, c := range result.Centers {
		if c.Distance < 0 || math.IsNaN(c.Distance) || math.IsInf(c.Distance, 0) {
			p.errorf("cluster %d has distance %g", c.ClusterID, c.Distance)
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		p.errorf("marshal result: %v", err)
		return p
	}
	var back domain.ClassificationResult
	if err := json.Unmarshal(data, &back); err != nil {
		p.errorf("unmarshal result: %v", err)
	} else {
		if back.ClusterID != result.ClusterID {
			p.errorf("round-trip changed cluster: %d -> %d", result.ClusterID, back.ClusterID)
		}
		if back.Category != result.Category {
			p.errorf("round-trip changed category: %+v -> %+v", result.Category, back.Category)
		}
	}

	out, err := domain.SerializeResult(result)
	if err != nil {
		p.errorf("serialize result: %v", err)
		return p
	}
	if len(out.Key) == 0 {
		p.errorf("output key is empty")
	}
	if out.Headers["risk_category"] != result.Category.Name {
		p.errorf("risk_category header is %q, want %q", out.Headers["risk_category"], result.Category.Name)
	}
	if _, err := time.Parse(time.RFC3339, out.Headers["classified_at"]); err != nil {
		p.errorf("classified_at header: %v", err)
	}

	return p
}

// ── Phase 5: Golden Fixtures ──
// Validates hand-checked observations against their expected cluster and
// category.

func validateFixtures(clf *domain.Classifier, path string) *phase {
	p := &phase{name: "Phase 5: Golden Fixtures"}

	rows, err := loadJSON[fixtureRow](path)
	if err != nil {
		p.errorf("load fixtures: %v", err)
		return p
	}
	if len(rows) == 0 {
		p.errorf("no fixture rows in %s", path)
		return p
	}

	for i, row := range rows {
		result, err := clf.Classify(domain.Observation{
			RainfallMM: row.RainfallMM,
			ElevationM: row.ElevationM,
			StationID:  row.StationID,
			District:   row.District,
		})
		if err != nil {
			p.errorf("row %d (%s): %v", i, row.StationID, err)
			continue
		}
		if result.ClusterID != row.ExpectedCluster {
			p.errorf("row %d (%s): cluster %d, expected %d", i, row.StationID, result.ClusterID, row.ExpectedCluster)
		}
		if result.Category.Name != row.ExpectedCategory {
			p.errorf("row %d (%s): category %q, expected %q", i, row.StationID, result.Category.Name, row.ExpectedCategory)
		}
	}
	return p
}

// ── Helpers ──

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
