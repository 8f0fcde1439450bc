package model

import (
	"fmt"
	"math"

	"diet-planner/internal/profile"
)

// NumericFeature is a standardized numeric profile attribute.
type NumericFeature struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// CategoricalFeature is a one-hot encoded profile attribute. Values outside
// Categories encode as all zeros.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Scaler standardizes numeric attributes and one-hot encodes categorical
// ones, in that order. Absent attributes take the profile defaults, or
// "Unknown" for categories.
type Scaler struct {
	Numeric     []NumericFeature     `json:"numeric"`
	Categorical []CategoricalFeature `json:"categorical"`
}

// Transform implements Preprocessor.
func (s *Scaler) Transform(p profile.UserProfile) ([]float64, error) {
	out := make([]float64, 0, s.width())
	for _, f := range s.Numeric {
		v, ok := p.Numeric(f.Name)
		if !ok {
			return nil, fmt.Errorf("unknown numeric feature %q", f.Name)
		}
		scale := f.Scale
		if scale == 0 {
			scale = 1
		}
		out = append(out, (v-f.Mean)/scale)
	}
	for _, f := range s.Categorical {
		v := p.Category(f.Name)
		for _, c := range f.Categories {
			if c == v {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}

func (s *Scaler) width() int {
	n := len(s.Numeric)
	for _, f := range s.Categorical {
		n += len(f.Categories)
	}
	return n
}

// PCA projects centered features onto principal components.
type PCA struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
}

func (p *PCA) check() error {
	if len(p.Components) == 0 {
		return fmt.Errorf("model bundle: pca has no components")
	}
	for i, c := range p.Components {
		if len(c) != len(p.Mean) {
			return fmt.Errorf("model bundle: pca component %d: %w", i, ErrDimension)
		}
	}
	return nil
}

// Transform implements Reducer.
func (p *PCA) Transform(x []float64) ([]float64, error) {
	if len(x) != len(p.Mean) {
		return nil, fmt.Errorf("pca expects %d features, got %d: %w", len(p.Mean), len(x), ErrDimension)
	}
	out := make([]float64, len(p.Components))
	for i, c := range p.Components {
		var sum float64
		for j, w := range c {
			sum += (x[j] - p.Mean[j]) * w
		}
		out[i] = sum
	}
	return out, nil
}

// KMeans assigns the nearest centroid. Ties go to the lower index.
type KMeans struct {
	Centroids [][]float64 `json:"centroids"`
}

// Predict implements Clusterer.
func (k *KMeans) Predict(x []float64) (int, error) {
	best, bestDist := -1, math.Inf(1)
	for i, c := range k.Centroids {
		if len(c) != len(x) {
			return 0, fmt.Errorf("centroid %d has %d dimensions, got %d: %w", i, len(c), len(x), ErrDimension)
		}
		var d float64
		for j := range c {
			diff := x[j] - c[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("kmeans has no centroids")
	}
	return best, nil
}

// LogisticClassifier is a linear model with a sigmoid decision.
type LogisticClassifier struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Threshold float64   `json:"threshold"`
}

// Probability returns the positive-class probability.
func (c *LogisticClassifier) Probability(x []float64) (float64, error) {
	if len(x) != len(c.Weights) {
		return 0, fmt.Errorf("classifier expects %d features, got %d: %w", len(c.Weights), len(x), ErrDimension)
	}
	z := c.Intercept
	for i, w := range c.Weights {
		z += w * x[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// Predict implements Classifier. A zero threshold means 0.5.
func (c *LogisticClassifier) Predict(x []float64) (bool, error) {
	prob, err := c.Probability(x)
	if err != nil {
		return false, err
	}
	threshold := c.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	return prob >= threshold, nil
}
