package rebuild

import (
	"github.com/roach88/tnpcore/internal/ir"
)

// Edit is one document mutation followed by a rebuild. Apply mutates doc
// in place and returns the feature the rebuild starts from ("" for all).
type Edit interface {
	Name() string
	Apply(doc *ir.Document) (from string, err error)
}

// SetParams replaces a feature's parameters.
type SetParams struct {
	Feature string
	Params  ir.Object
}

func (SetParams) Name() string { return "set_params" }

func (e SetParams) Apply(doc *ir.Document) (string, error) {
	return e.Feature, doc.SetParams(e.Feature, e.Params)
}

// AddFeature appends a feature to the end of the history.
type AddFeature struct {
	Feature ir.Feature
}

func (AddFeature) Name() string { return "add_feature" }

func (e AddFeature) Apply(doc *ir.Document) (string, error) {
	return e.Feature.ID, doc.AddFeature(e.Feature)
}

// DeleteFeature removes a feature. Its dependents are re-evaluated by a
// full pass; their slots sourced from it surface as missing references.
type DeleteFeature struct {
	Feature string
}

func (DeleteFeature) Name() string { return "delete_feature" }

func (e DeleteFeature) Apply(doc *ir.Document) (string, error) {
	return "", doc.DeleteFeature(e.Feature)
}

// AcceptReferences acknowledges a feature's drifted references as its new
// baseline and rebuilds from it.
type AcceptReferences struct {
	Feature string
}

func (AcceptReferences) Name() string { return "accept_references" }

func (e AcceptReferences) Apply(doc *ir.Document) (string, error) {
	return e.Feature, doc.AcceptReferences(e.Feature)
}

// RebuildFrom leaves the document as is and rebuilds from a feature.
type RebuildFrom struct {
	From string
}

func (RebuildFrom) Name() string { return "rebuild" }

func (e RebuildFrom) Apply(doc *ir.Document) (string, error) {
	if e.From != "" && doc.Feature(e.From) == nil {
		return "", newUnknownFeatureError(e.From)
	}
	return e.From, nil
}
