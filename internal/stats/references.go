package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
)

// Reference is a named probability distribution over the thirteen relations,
// used as the expected side of a goodness-of-fit test.
type Reference struct {
	Name  string
	Probs map[relation.Code]float64
}

// Uniform is the null hypothesis distribution: every relation equally likely.
func Uniform() Reference {
	probs := make(map[relation.Code]float64, len(relation.CanonicalOrder))
	p := 1.0 / float64(len(relation.CanonicalOrder))
	for _, code := range relation.CanonicalOrder {
		probs[code] = p
	}
	return Reference{Name: "uniform", Probs: probs}
}

// vector lays the reference out in canonical order, normalized to sum 1.
// Relations absent from the map get probability zero.
func (r Reference) vector() []float64 {
	out := make([]float64, len(relation.CanonicalOrder))
	var sum float64
	for i, code := range relation.CanonicalOrder {
		out[i] = r.Probs[code]
		sum += out[i]
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

func (r Reference) validate() error {
	if r.Name == "" {
		return fmt.Errorf("reference has no name")
	}
	var sum float64
	for code, p := range r.Probs {
		if !relation.Valid(code) {
			return fmt.Errorf("reference %q: unknown relation code %q", r.Name, code)
		}
		if p < 0 {
			return fmt.Errorf("reference %q: negative probability for %q", r.Name, code)
		}
		sum += p
	}
	if sum <= 0 {
		return fmt.Errorf("reference %q: probabilities sum to zero", r.Name)
	}
	return nil
}

type referenceFile struct {
	References map[string]map[string]float64 `yaml:"references"`
}

// LoadReferences reads additional reference distributions from a YAML file of
// the form:
//
//	references:
//	  skewed:
//	    p: 0.5
//	    P: 0.5
//
// Each distribution is validated and normalized on use.
func LoadReferences(path string) ([]Reference, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read references file: %w", err)
	}
	var file referenceFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse references file: %w", err)
	}

	refs := make([]Reference, 0, len(file.References))
	for name, probs := range file.References {
		ref := Reference{Name: name, Probs: make(map[relation.Code]float64, len(probs))}
		for code, p := range probs {
			ref.Probs[relation.Code(code)] = p
		}
		if err := ref.validate(); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
