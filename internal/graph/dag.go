package graph

import "fmt"

// ValidateSpecs checks a set of node specs for structural problems: invalid
// kinds, duplicate ids, references to unknown dependencies, and cycles.
func ValidateSpecs(specs []NodeSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("job requires at least one resource spec")
	}

	ids := make(map[string]NodeSpec, len(specs))
	for _, spec := range specs {
		if !spec.Kind.Valid() {
			return fmt.Errorf("spec %q: unknown kind %q", spec.Name, spec.Kind)
		}
		if spec.Name == "" {
			return fmt.Errorf("spec of kind %s has no name", spec.Kind)
		}
		id := spec.ID()
		if _, dup := ids[id]; dup {
			return fmt.Errorf("duplicate resource id %q", id)
		}
		ids[id] = spec
	}

	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, ok := ids[dep]; !ok {
				return fmt.Errorf("spec %q depends on unknown resource %q", spec.ID(), dep)
			}
		}
	}

	return checkAcyclic(ids)
}

// checkAcyclic runs a depth-first search over the dependency edges and
// reports the first cycle found.
func checkAcyclic(specs map[string]NodeSpec) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(specs))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("dependency cycle involving resource %q", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range specs[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range specs {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
