package nutrition

import (
	"math"
	"sort"
	"strings"
)

// MacrosInput is an untrusted macro set. Nil fields are missing, not zero.
type MacrosInput struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
}

type DensityInput struct {
	BaseQuantity *float64     `json:"base_quantity,omitempty"`
	Macros       *MacrosInput `json:"macros"`
}

type ServingMacroInput struct {
	UnitQuantity *float64     `json:"unit_quantity"`
	Macros       *MacrosInput `json:"macros"`
}

type ServingInput struct {
	Labels map[string]ServingMacroInput `json:"labels"`
}

// Payload is the discriminated input accepted by Create and
// ReplaceRepresentation. Exactly one of Density and Serving must be set.
type Payload struct {
	Density *DensityInput `json:"density,omitempty"`
	Serving *ServingInput `json:"serving,omitempty"`
}

// Create validates caller-supplied fields and builds a FoodRecord.
func Create(id, name string, kind QuantityKind, p Payload) (FoodRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return FoodRecord{}, invalid("id", "is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return FoodRecord{}, invalid("name", "is required")
	}
	rep, err := buildRepresentation(kind, p)
	if err != nil {
		return FoodRecord{}, err
	}
	return FoodRecord{id: id, name: name, kind: kind, rep: rep}, nil
}

// ReplaceRepresentation returns a copy of r whose representation is rebuilt
// from p. Nothing from the old representation carries over.
func ReplaceRepresentation(r FoodRecord, kind QuantityKind, p Payload) (FoodRecord, error) {
	if r.rep == nil {
		return FoodRecord{}, invalid("record", "is not a validated food record")
	}
	rep, err := buildRepresentation(kind, p)
	if err != nil {
		return FoodRecord{}, err
	}
	return FoodRecord{id: r.id, name: r.name, kind: kind, rep: rep}, nil
}

func buildRepresentation(kind QuantityKind, p Payload) (Representation, error) {
	if !kind.Valid() {
		return nil, invalid("quantity_kind", "must be one of gram, ml, serving; got %q", kind)
	}
	switch {
	case p.Density != nil && p.Serving != nil:
		return nil, invalid("representation", "density and serving are mutually exclusive")
	case p.Density == nil && p.Serving == nil:
		return nil, invalid("representation", "one of density or serving is required")
	}

	if kind == Serving {
		if p.Serving == nil {
			return nil, invalid("serving", "is required for quantity kind %q", kind)
		}
		return buildServing(p.Serving)
	}
	if p.Density == nil {
		return nil, invalid("density", "is required for quantity kind %q", kind)
	}
	return buildDensity(p.Density)
}

func buildDensity(in *DensityInput) (Representation, error) {
	base := DefaultBaseQuantity
	if in.BaseQuantity != nil {
		base = *in.BaseQuantity
		if err := checkQuantity("density.base_quantity", base); err != nil {
			return nil, err
		}
	}
	m, err := buildMacros("density.macros", in.Macros)
	if err != nil {
		return nil, err
	}
	return DensityRep{BaseQuantity: base, Macros: m}, nil
}

func buildServing(in *ServingInput) (Representation, error) {
	if len(in.Labels) == 0 {
		return nil, invalid("serving.labels", "at least one serving label is required")
	}
	raw := make([]string, 0, len(in.Labels))
	for k := range in.Labels {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	labels := make(map[string]ServingMacro, len(raw))
	for _, k := range raw {
		label := strings.TrimSpace(k)
		field := "serving.labels." + label
		if label == "" {
			return nil, invalid("serving.labels", "label names must not be blank")
		}
		if _, dup := labels[label]; dup {
			return nil, invalid(field, "duplicate label after trimming")
		}
		sm := in.Labels[k]
		if sm.UnitQuantity == nil {
			return nil, invalid(field+".unit_quantity", "is required")
		}
		if err := checkQuantity(field+".unit_quantity", *sm.UnitQuantity); err != nil {
			return nil, err
		}
		m, err := buildMacros(field+".macros", sm.Macros)
		if err != nil {
			return nil, err
		}
		labels[label] = ServingMacro{UnitQuantity: *sm.UnitQuantity, Macros: m}
	}
	return ServingRep{labels: labels}, nil
}

func buildMacros(field string, in *MacrosInput) (Macros, error) {
	if in == nil {
		return Macros{}, invalid(field, "is required")
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{"calories", in.Calories},
		{"protein", in.Protein},
		{"carbs", in.Carbs},
		{"fat", in.Fat},
	}
	for _, f := range fields {
		if f.v == nil {
			return Macros{}, invalid(field+"."+f.name, "is required")
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return Macros{}, invalid(field+"."+f.name, "must be a finite number")
		}
		if *f.v < 0 {
			return Macros{}, invalid(field+"."+f.name, "must not be negative")
		}
	}
	return Macros{
		Calories: *in.Calories,
		Protein:  *in.Protein,
		Carbs:    *in.Carbs,
		Fat:      *in.Fat,
	}, nil
}

func checkQuantity(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	if v <= 0 {
		return invalid(field, "must be positive")
	}
	if v < 1 {
		return invalid(field, "must be at least 1")
	}
	return nil
}

// Payload renders the canonical payload of r. Create(r.ID(), r.Name(),
// r.QuantityKind(), r.Payload()) rebuilds an equal record.
func (r FoodRecord) Payload() Payload {
	switch rep := r.rep.(type) {
	case DensityRep:
		base := rep.BaseQuantity
		return Payload{Density: &DensityInput{BaseQuantity: &base, Macros: macrosInput(rep.Macros)}}
	case ServingRep:
		labels := make(map[string]ServingMacroInput, len(rep.labels))
		for k, v := range rep.labels {
			q := v.UnitQuantity
			labels[k] = ServingMacroInput{UnitQuantity: &q, Macros: macrosInput(v.Macros)}
		}
		return Payload{Serving: &ServingInput{Labels: labels}}
	}
	return Payload{}
}

func macrosInput(m Macros) *MacrosInput {
	c, p, cb, f := m.Calories, m.Protein, m.Carbs, m.Fat
	return &MacrosInput{Calories: &c, Protein: &p, Carbs: &cb, Fat: &f}
}
