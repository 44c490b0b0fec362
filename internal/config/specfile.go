package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/imamik/rosahcp/internal/graph"
)

// SpecFile is the on-disk description of one provisioning job.
type SpecFile struct {
	ClusterName string         `yaml:"cluster_name"`
	Resources   []resourceSpec `yaml:"resources"`
}

// resourceSpec mirrors graph.NodeSpec but keeps the manifest as a YAML
// subtree so spec authors can inline it instead of escaping a string.
type resourceSpec struct {
	Kind         string    `yaml:"kind"`
	Name         string    `yaml:"name"`
	Namespace    string    `yaml:"namespace"`
	DependsOn    []string  `yaml:"depends_on"`
	Capabilities []string  `yaml:"capabilities"`
	Manifest     yaml.Node `yaml:"manifest"`
}

// LoadSpecFile reads a provisioning spec file and returns the cluster name
// and the validated resource specs.
func LoadSpecFile(path string) (string, []graph.NodeSpec, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec parses a provisioning spec from YAML bytes.
func ParseSpec(data []byte) (string, []graph.NodeSpec, error) {
	var file SpecFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal spec yaml: %w", err)
	}
	if file.ClusterName == "" {
		return "", nil, fmt.Errorf("spec file is missing cluster_name")
	}

	specs := make([]graph.NodeSpec, 0, len(file.Resources))
	for _, res := range file.Resources {
		spec := graph.NodeSpec{
			Kind:      graph.NodeKind(res.Kind),
			Name:      res.Name,
			Namespace: res.Namespace,
			DependsOn: res.DependsOn,
		}
		for _, cap := range res.Capabilities {
			spec.Capabilities = append(spec.Capabilities, graph.Capability(cap))
		}
		if !res.Manifest.IsZero() {
			manifest, err := yaml.Marshal(&res.Manifest)
			if err != nil {
				return "", nil, fmt.Errorf("resource %q: failed to re-encode manifest: %w", res.Name, err)
			}
			spec.Manifest = manifest
		}
		specs = append(specs, spec)
	}

	if err := graph.ValidateSpecs(specs); err != nil {
		return "", nil, err
	}
	return file.ClusterName, specs, nil
}
