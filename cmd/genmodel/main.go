// Command genmodel trains a small mock clustering model and writes the
// JSON bundle plus golden classification fixtures for the test suites. It
// runs the actual kmeans and domain packages so fixtures match real
// service behavior.
//
// Usage:
//
//	go run ./cmd/genmodel \
//	  -clusters 3 \
//	  -out data/mock/flood_model_k3.json \
//	  -fixtures data/mock/classified_observations.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/banjirlab/flood-risk-service/internal/domain"
	"github.com/banjirlab/flood-risk-service/internal/kmeans"
)

const samplesPerCluster = 20

// districts cycles through the four Lhokseumawe districts for fixture
// station metadata.
var districts = []string{"Banda Sakti", "Blang Mangat", "Muara Dua", "Muara Satu"}

// fixtureRow is one golden observation with its expected classification.
type fixtureRow struct {
	StationID        string  `json:"station_id"`
	District         string  `json:"district"`
	RainfallMM       float64 `json:"rainfall_mm"`
	ElevationM       float64 `json:"elevation_m"`
	ExpectedCluster  int     `json:"expected_cluster"`
	ExpectedCategory string  `json:"expected_category"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	clusters := flag.Int("clusters", 3, "number of clusters to train")
	seed := flag.Int64("seed", 1, "random seed for sample generation")
	out := flag.String("out", "", "output path for the model bundle JSON")
	fixturesOut := flag.String("fixtures", "", "optional output path for golden classification fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *clusters < 1 {
		return fmt.Errorf("-clusters must be at least 1")
	}

	rng := rand.New(rand.NewSource(*seed))

	// Generate gauge samples around evenly spread terrain profiles: low
	// ground gets the wet profile, high ground the dry one.
	seeds := seedCenters(*clusters)
	samples := generateSamples(rng, seeds)
	log.Printf("generated %d samples around %d seed centers", len(samples), *clusters)

	mean, scale := fitScaler(samples)
	scaler, err := kmeans.NewStandardScaler(mean, scale)
	if err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}

	normSamples, err := transformAll(scaler, samples)
	if err != nil {
		return fmt.Errorf("normalize samples: %w", err)
	}
	normSeeds, err := transformAll(scaler, seeds)
	if err != nil {
		return fmt.Errorf("normalize seeds: %w", err)
	}

	centers := lloyd(normSamples, normSeeds, 25)

	bundle := kmeans.Bundle{
		FeatureNames: []string{"rainfall_mm", "elevation_m"},
		Scaler:       kmeans.ScalerParams{Mean: mean, Scale: scale},
		Centers:      centers,
		TrainedAt:    time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		Source:       "genmodel",
	}
	if err := bundle.Validate(); err != nil {
		return fmt.Errorf("generated bundle invalid: %w", err)
	}

	if err := writeJSON(*out, bundle); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}
	log.Printf("wrote model bundle: %s", *out)

	// Build the real engine to derive fixtures and stats.
	bundleScaler, model, err := kmeans.NewFromBundle(&bundle)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	rawCenters, err := model.RawCenters(bundleScaler)
	if err != nil {
		return fmt.Errorf("raw centers: %w", err)
	}
	assignment, err := domain.BuildAssignment(rawCenters, domain.DefaultSeverityScale())
	if err != nil {
		return fmt.Errorf("build assignment: %w", err)
	}
	clf := domain.NewClassifier(bundleScaler, model, assignment)

	var fixtures []fixtureRow
	if *fixturesOut != "" {
		fixtures, err = generateFixtures(rng, clf, rawCenters)
		if err != nil {
			return fmt.Errorf("generate fixtures: %w", err)
		}
		if err := writeJSON(*fixturesOut, fixtures); err != nil {
			return fmt.Errorf("writing fixtures: %w", err)
		}
		log.Printf("wrote %d fixtures: %s", len(fixtures), *fixturesOut)
	}

	printStats(assignment, fixtures, len(samples), mean, scale)
	return nil
}

// seedCenters spreads raw-unit centers over the terrain range: rainfall
// 450mm down to 150mm as elevation climbs from 2m to 50m.
func seedCenters(k int) [][]float64 {
	centers := make([][]float64, k)
	for i := 0; i < k; i++ {
		frac := 0.0
		if k > 1 {
			frac = float64(i) / float64(k-1)
		}
		centers[i] = []float64{
			450 - 300*frac,
			2 + 48*frac,
		}
	}
	return centers
}

func generateSamples(rng *rand.Rand, centers [][]float64) [][]float64 {
	samples := make([][]float64, 0, len(centers)*samplesPerCluster)
	for _, c := range centers {
		for i := 0; i < samplesPerCluster; i++ {
			samples = append(samples, []float64{
				math.Max(0, c[0]+rng.NormFloat64()*25),
				math.Max(0, c[1]+rng.NormFloat64()*3),
			})
		}
	}
	return samples
}

// fitScaler computes per-feature mean and population standard deviation.
func fitScaler(samples [][]float64) (mean, scale []float64) {
	mean = make([]float64, kmeans.FeatureCount)
	for _, s := range samples {
		for j := range mean {
			mean[j] += s[j]
		}
	}
	n := float64(len(samples))
	for j := range mean {
		mean[j] /= n
	}

	scale = make([]float64, kmeans.FeatureCount)
	for _, s := range samples {
		for j := range scale {
			d := s[j] - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
	}
	return mean, scale
}

func transformAll(scaler *kmeans.StandardScaler, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := scaler.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// lloyd refines centers in normalized space until assignments stabilize or
// maxIter passes. Empty clusters keep their previous center.
func lloyd(samples, initial [][]float64, maxIter int) [][]float64 {
	k := len(initial)
	centers := make([][]float64, k)
	for i := range initial {
		centers[i] = append([]float64(nil), initial[i]...)
	}

	assign := make([]int, len(samples))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, s := range samples {
			best, bestDist := 0, dist2(s, centers[0])
			for j := 1; j < k; j++ {
				if d := dist2(s, centers[j]); d < bestDist {
					best, bestDist = j, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, kmeans.FeatureCount)
		}
		for i, s := range samples {
			c := assign[i]
			counts[c]++
			for j := range s {
				sums[c][j] += s[j]
			}
		}
		for i := range centers {
			if counts[i] == 0 {
				continue
			}
			for j := range centers[i] {
				centers[i][j] = sums[i][j] / float64(counts[i])
			}
		}
	}
	return centers
}

func dist2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// generateFixtures classifies a few noisy observations near each center
// and records what the real classifier said.
func generateFixtures(rng *rand.Rand, clf *domain.Classifier, rawCenters []domain.ClusterCenter) ([]fixtureRow, error) {
	var fixtures []fixtureRow //nolint:prealloc // row count is small and fixed
	station := 0
	for _, center := range rawCenters {
		for i := 0; i < 3; i++ {
			station++
			obs := domain.Observation{
				RainfallMM: math.Max(0, center.RainfallMM+rng.NormFloat64()*15),
				ElevationM: math.Max(0, center.ElevationM+rng.NormFloat64()*1.5),
				StationID:  fmt.Sprintf("LSM-%03d", station),
				District:   districts[station%len(districts)],
			}
			result, err := clf.Classify(obs)
			if err != nil {
				return nil, fmt.Errorf("classify fixture %s: %w", obs.StationID, err)
			}
			fixtures = append(fixtures, fixtureRow{
				StationID:        obs.StationID,
				District:         obs.District,
				RainfallMM:       obs.RainfallMM,
				ElevationM:       obs.ElevationM,
				ExpectedCluster:  result.ClusterID,
				ExpectedCategory: result.Category.Name,
			})
		}
	}
	return fixtures, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(assignment *domain.RiskAssignment, fixtures []fixtureRow, sampleCount int, mean, scale []float64) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Samples: %d\n", sampleCount)
	fmt.Printf("Scaler: mean=[%.4f %.4f], scale=[%.4f %.4f]\n", mean[0], mean[1], scale[0], scale[1])

	fmt.Println("\nCenters (raw units, most severe first):")
	for _, c := range assignment.Centers() {
		fmt.Printf("  cluster %d: rainfall=%.1fmm elevation=%.1fm -> %s (%s, rank %d)\n",
			c.ClusterID, c.RainfallMM, c.ElevationM,
			c.Category.Name, c.Category.Color, c.Category.Rank)
	}

	if len(fixtures) > 0 {
		byCategory := map[string]int{}
		for _, f := range fixtures {
			byCategory[f.ExpectedCategory]++
		}
		fmt.Println("\nFixtures by category:")
		for _, c := range assignment.Centers() {
			if n, ok := byCategory[c.Category.Name]; ok {
				fmt.Printf("  %s=%d\n", c.Category.Name, n)
			}
		}
	}
}
