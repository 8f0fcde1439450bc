// Package model runs the pre-trained user clustering and recipe
// suitability models. Models are exported from training as a single JSON
// artifact and are read-only once loaded.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"diet-planner/internal/profile"
	"diet-planner/internal/recipe"
)

// ErrDimension is returned when a vector does not fit a model.
var ErrDimension = errors.New("feature dimension mismatch")

// Preprocessor turns a profile into a feature vector.
type Preprocessor interface {
	Transform(p profile.UserProfile) ([]float64, error)
}

// Reducer projects a feature vector to fewer dimensions.
type Reducer interface {
	Transform(x []float64) ([]float64, error)
}

// Clusterer assigns a vector to a cluster.
type Clusterer interface {
	Predict(x []float64) (int, error)
}

// Classifier decides whether a feature vector is a positive example.
type Classifier interface {
	Predict(x []float64) (bool, error)
}

// ClusterProfile describes a user cluster.
type ClusterProfile struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Bundle holds the models consulted before planning. Any part may be nil;
// a nil or empty Bundle assigns every user to cluster 0 and keeps every
// recipe.
type Bundle struct {
	Preprocessor Preprocessor
	Reducer      Reducer
	Clusterer    Clusterer
	Classifier   Classifier
	Profiles     []ClusterProfile
}

type artifact struct {
	Scaler     *Scaler             `json:"scaler"`
	PCA        *PCA                `json:"pca"`
	KMeans     *KMeans             `json:"kmeans"`
	Classifier *LogisticClassifier `json:"classifier"`
	Clusters   []ClusterProfile    `json:"clusters"`
}

// LoadBundle reads a bundle artifact from disk.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model bundle: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a bundle artifact.
func Load(r io.Reader) (*Bundle, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model bundle: %w", err)
	}

	b := &Bundle{Profiles: a.Clusters}
	if a.Scaler != nil {
		b.Preprocessor = a.Scaler
	}
	if a.PCA != nil {
		if err := a.PCA.check(); err != nil {
			return nil, err
		}
		b.Reducer = a.PCA
	}
	if a.KMeans != nil {
		if len(a.KMeans.Centroids) == 0 {
			return nil, fmt.Errorf("model bundle: kmeans has no centroids")
		}
		b.Clusterer = a.KMeans
	}
	if a.Classifier != nil {
		b.Classifier = a.Classifier
	}
	return b, nil
}

// AssignCluster runs preprocessing, reduction and clustering. Without a
// preprocessor or clusterer every user is in cluster 0.
func (b *Bundle) AssignCluster(p profile.UserProfile) (int, error) {
	if b == nil || b.Preprocessor == nil || b.Clusterer == nil {
		return 0, nil
	}
	x, err := b.Preprocessor.Transform(p)
	if err != nil {
		return 0, fmt.Errorf("failed to preprocess profile: %w", err)
	}
	if b.Reducer != nil {
		if x, err = b.Reducer.Transform(x); err != nil {
			return 0, fmt.Errorf("failed to reduce features: %w", err)
		}
	}
	cluster, err := b.Clusterer.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("failed to predict cluster: %w", err)
	}
	return cluster, nil
}

// RecipeFeatures is the classifier input for a recipe and cluster.
func RecipeFeatures(r recipe.Recipe, cluster int) []float64 {
	n := r.Nutrition
	return []float64{n.Calories, n.Protein, n.Carbs, n.Fat, n.Sodium, n.Fiber, float64(cluster)}
}

// SuitableRecipes keeps the recipes the classifier accepts for cluster. If
// the classifier rejects everything the full set is returned, so the
// planner's own filters still have something to work with.
func (b *Bundle) SuitableRecipes(recipes recipe.Set, cluster int) (recipe.Set, error) {
	if b == nil || b.Classifier == nil {
		return recipes, nil
	}
	kept := make(recipe.Set, 0, len(recipes))
	for _, r := range recipes {
		ok, err := b.Classifier.Predict(RecipeFeatures(r, cluster))
		if err != nil {
			return recipes, fmt.Errorf("failed to classify recipe %d: %w", r.ID, err)
		}
		if ok {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return recipes, nil
	}
	return kept, nil
}

// Profile returns the description of a cluster.
func (b *Bundle) Profile(cluster int) (ClusterProfile, bool) {
	if b == nil {
		return ClusterProfile{}, false
	}
	for _, cp := range b.Profiles {
		if cp.ID == cluster {
			return cp, true
		}
	}
	return ClusterProfile{}, false
}
