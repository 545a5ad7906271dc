package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/navmesh"
)

type LLMConfig struct {
	Provider     string  `toml:"provider"`
	Model        string  `toml:"model"`
	APIKey       string  `toml:"api_key"`
	BaseURL      string  `toml:"base_url"`
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float32 `toml:"temperature"`
	MaxTokens    int     `toml:"max_tokens"`
}

// BatchConfig shapes the request lines of a batch job file.
type BatchConfig struct {
	Model         string  `toml:"model"`
	URL           string  `toml:"url"`
	SystemPrompt  string  `toml:"system_prompt"`
	Temperature   float32 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
	GraphStrategy bool    `toml:"graph_strategy"`
}

// Prompts are format strings rendered with fmt.Sprintf.
type Prompts struct {
	GraphEasy   string `toml:"graph_easy"`
	GraphMedium string `toml:"graph_medium"`
	// GraphInput takes the objects JSON and the ownership graph JSON.
	GraphInput string `toml:"graph_input"`
	// Direct takes the tier name, summary count and the object bounds.
	Direct string `toml:"direct"`
	// DirectInput takes the objects JSON.
	DirectInput string `toml:"direct_input"`
}

type MemgraphConfig struct {
	Enabled  bool   `toml:"enabled"`
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type SimulatorConfig struct {
	BridgeURL      string           `toml:"bridge_url"`
	TimeoutSeconds int              `toml:"timeout_seconds"`
	ScenesDir      string           `toml:"scenes_dir"`
	Sensor         navmesh.Settings `toml:"sensor"`
}

func (s SimulatorConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type SamplerConfig struct {
	UseViewPoints     bool `toml:"use_view_points"`
	SkipUnsatisfiable bool `toml:"skip_unsatisfiable"`
}

type DatasetConfig struct {
	// BasePath holds <split>/<scene>/<annotation>.json files.
	BasePath string `toml:"base_path"`
	// MetadataPath holds <split>/content/<scene>.json.gz goal metadata.
	MetadataPath       string         `toml:"metadata_path"`
	MetadataSplits     []string       `toml:"metadata_splits"`
	OutputDir          string         `toml:"output_dir"`
	SceneDatasetConfig string         `toml:"scene_dataset_config"`
	Quota              map[string]int `toml:"quota"`
	Names              []string       `toml:"names"`
	MaxScenes          int            `toml:"max_scenes"`
	SkipScenes         []string       `toml:"skip_scenes"`
}

type TierConfig struct {
	// Split is the annotation split the tier is generated from.
	Split      string `toml:"split"`
	EpisodeCap int    `toml:"episode_cap"`
	// Summaries is the number of prompts per chunk.
	Summaries  int `toml:"summaries"`
	MinObjects int `toml:"min_objects"`
	MaxObjects int `toml:"max_objects"`
}

type Config struct {
	Seed      uint64                `toml:"seed"`
	LLM       LLMConfig             `toml:"llm"`
	Batch     BatchConfig           `toml:"batch"`
	Prompts   Prompts               `toml:"prompts"`
	Memgraph  MemgraphConfig        `toml:"memgraph"`
	Simulator SimulatorConfig       `toml:"simulator"`
	Sampler   SamplerConfig         `toml:"sampler"`
	Dataset   DatasetConfig         `toml:"dataset"`
	Tiers     map[string]TierConfig `toml:"tiers"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     "openai",
			Model:        "gpt-4.1",
			SystemPrompt: "You are an helpful assistant.",
			Temperature:  0.7,
			MaxTokens:    3000,
		},
		Batch: BatchConfig{
			Model:         "gpt-4.1",
			URL:           "/v1/chat/completions",
			SystemPrompt:  "You are a helpful assistant.",
			Temperature:   0.7,
			MaxTokens:     3000,
			GraphStrategy: true,
		},
		Prompts: Prompts{
			GraphEasy: "Write short everyday summaries about the people below. Each person owns exactly one object. " +
				"Answer with JSON {\"summaries\": [{\"selected_items\": [{\"object_id\", \"owner\"}], \"summary\", \"extracted_summary\"}]}. " +
				"Refer to people only with their placeholder, for example <person1>.",
			GraphMedium: "Write short everyday summaries about the people below and the objects they own, following the ownership exactly. " +
				"Answer with JSON {\"summaries\": [{\"selected_items\": [{\"object_id\", \"owner\"}], \"summary\", \"extracted_summary\"}]}. " +
				"Refer to people only with their placeholder, for example <person1>.",
			GraphInput: "\n\n**Input**:\n Objects:\n%s\n\nOwnership:\n%s\n\n**Output:**\n",
			Direct: "Difficulty: %s. Write %d summaries. Each summary assigns between %d and %d of the objects below to placeholder persons such as <person1>. " +
				"Answer with JSON {\"summaries\": [{\"selected_items\": [{\"object_id\", \"owner\"}], \"summary\", \"extracted_summary\"}]}.",
			DirectInput: "\n\n**Input**:\n%s\n\n**Output:**\n",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Simulator: SimulatorConfig{
			BridgeURL:      "http://localhost:8765",
			TimeoutSeconds: 60,
			ScenesDir:      "data/scene_datasets/hm3d",
			Sensor:         navmesh.DefaultSettings(),
		},
		Sampler: SamplerConfig{
			UseViewPoints: true,
		},
		Dataset: DatasetConfig{
			BasePath:           "data/datasets/eai_pers",
			MetadataPath:       "data/datasets/goat_bench/hm3d/v1",
			MetadataSplits:     []string{"val_seen", "val_seen_synonyms", "val_unseen"},
			OutputDir:          "data/datasets/eai_pers/out",
			SceneDatasetConfig: "./data/scene_datasets/hm3d_v0.2/hm3d_annotated_basis.scene_dataset_config.json",
			Quota:              map[string]int{"chair": 3, "cabinet": 2, "picture": 2, "kitchen_cabinet": 2},
			SkipScenes:         []string{"yr17PDCnDDW", "eF36g7L6Z9M"},
		},
		Tiers: map[string]TierConfig{
			string(model.Easy):   {Split: "val_seen", EpisodeCap: 600, Summaries: 3, MinObjects: 3, MaxObjects: 4},
			string(model.Medium): {Split: "val_seen_merged", EpisodeCap: 700, Summaries: 3, MinObjects: 4, MaxObjects: 7},
			string(model.Hard):   {Split: "val", EpisodeCap: 700, Summaries: 3, MinObjects: 7, MaxObjects: 10},
		},
	}
}

// Load reads a TOML file over Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.Memgraph.URI, "MEMGRAPH_URI")
	setString(&c.Memgraph.User, "MEMGRAPH_USER")
	setString(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	setString(&c.Simulator.BridgeURL, "SIM_BRIDGE_URL")
	if v, err := strconv.ParseUint(os.Getenv("PERSONAV_SEED"), 10, 64); err == nil {
		c.Seed = v
	}
}

// Tier returns the settings of a difficulty tier.
func (c *Config) Tier(t model.Tier) (TierConfig, error) {
	tc, ok := c.Tiers[string(t)]
	if !ok {
		return TierConfig{}, fmt.Errorf("%w: %q has no [tiers] entry", model.ErrUnknownTier, t)
	}
	return tc, nil
}

// GraphPrompt returns the prompt template used with ownership graphs.
func (p Prompts) GraphPrompt(t model.Tier) string {
	if t == model.Easy {
		return p.GraphEasy
	}
	return p.GraphMedium
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
