package engine

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Strategy parameter blocks read from a request file start from the
// defaults, so omitted keys keep their default value and explicit zeros
// are preserved.

type (
	geneticFields        GeneticConfig
	annealingFields      AnnealingConfig
	branchAndBoundFields BranchAndBoundConfig
)

func (c *GeneticConfig) UnmarshalYAML(value *yaml.Node) error {
	f := geneticFields(DefaultGeneticConfig())
	if err := value.Decode(&f); err != nil {
		return err
	}
	*c = GeneticConfig(f)
	return nil
}

func (c *GeneticConfig) UnmarshalJSON(data []byte) error {
	f := geneticFields(DefaultGeneticConfig())
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = GeneticConfig(f)
	return nil
}

func (c *AnnealingConfig) UnmarshalYAML(value *yaml.Node) error {
	f := annealingFields(DefaultAnnealingConfig())
	if err := value.Decode(&f); err != nil {
		return err
	}
	*c = AnnealingConfig(f)
	return nil
}

func (c *AnnealingConfig) UnmarshalJSON(data []byte) error {
	f := annealingFields(DefaultAnnealingConfig())
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = AnnealingConfig(f)
	return nil
}

func (c *BranchAndBoundConfig) UnmarshalYAML(value *yaml.Node) error {
	f := branchAndBoundFields(DefaultBranchAndBoundConfig())
	if err := value.Decode(&f); err != nil {
		return err
	}
	*c = BranchAndBoundConfig(f)
	return nil
}

func (c *BranchAndBoundConfig) UnmarshalJSON(data []byte) error {
	f := branchAndBoundFields(DefaultBranchAndBoundConfig())
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = BranchAndBoundConfig(f)
	return nil
}
