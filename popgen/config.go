package popgen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelSpec is one entry of the variant_models list (or the site_model /
// population_model value): a single-key mapping from model name to that
// model's parameter block.
//
//	variant_models:
//	  - snp:
//	      p: 0.01
//	  - delete:
//	      p: 0.001
//	      min_len: 10
//	      max_len: 1000
type ModelSpec struct {
	Name   string
	Params *yaml.Node
}

// UnmarshalYAML implements yaml.Unmarshaler for ModelSpec.
func (m *ModelSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("model spec must be a single-key mapping of name to parameters")
	}
	if err := node.Content[0].Decode(&m.Name); err != nil {
		return err
	}
	m.Params = node.Content[1]
	return nil
}

// RNGConfig holds the deterministic-RNG parameters.
type RNGConfig struct {
	MasterSeed int64 `yaml:"master_seed"`
}

// FilesConfig holds the file paths a simulation reads and writes.
type FilesConfig struct {
	Reference string `yaml:"reference"` // FASTA, optionally gzipped
	DB        string `yaml:"db"`        // output population store path
}

// SimulationConfig is the full parameter file for a population
// simulation, loadable from YAML.
type SimulationConfig struct {
	Files           FilesConfig `yaml:"files"`
	RNG             RNGConfig   `yaml:"rng"`
	Chromosomes     []int       `yaml:"chromosomes"`
	VariantModels   []ModelSpec `yaml:"variant_models"`
	SiteModel       *ModelSpec  `yaml:"site_model"`
	PopulationModel *ModelSpec  `yaml:"population_model"`
	InMemory        bool        `yaml:"in_memory"` // backend flag for the population store
}

// LoadSimulationConfig reads and validates a YAML parameter file.
func LoadSimulationConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing parameter file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks seed bounds, model names and chromosome indices. Model
// parameter ranges are validated by each model's factory.
func (c *SimulationConfig) Validate() error {
	if _, err := NewMasterSeed(c.RNG.MasterSeed); err != nil {
		return err
	}
	if len(c.VariantModels) == 0 {
		return fmt.Errorf("no variant models configured")
	}
	for _, m := range c.VariantModels {
		if _, ok := variantRegistry[m.Name]; !ok {
			return fmt.Errorf("variant model %q: %w", m.Name, ErrUnknownModel)
		}
	}
	if c.SiteModel != nil {
		if _, ok := siteModelRegistry[c.SiteModel.Name]; !ok {
			return fmt.Errorf("site model %q: %w", c.SiteModel.Name, ErrUnknownModel)
		}
	}
	if c.PopulationModel != nil {
		if _, ok := populationRegistry[c.PopulationModel.Name]; !ok {
			return fmt.Errorf("population model %q: %w", c.PopulationModel.Name, ErrUnknownModel)
		}
	}
	for _, chrom := range c.Chromosomes {
		if chrom < 1 {
			return fmt.Errorf("chromosome indices are 1-based, got %d", chrom)
		}
	}
	return nil
}
