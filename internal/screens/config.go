package screens

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jafarshop/groceryadmin/internal/filter"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Pagination string

const (
	PaginationClient Pagination = "client"
	PaginationServer Pagination = "server"
)

// ScreenConfig is the list behaviour of one screen.
type ScreenConfig struct {
	Pagination        Pagination    `yaml:"pagination"`
	PageSize          int           `yaml:"page_size"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	KeepPrevious      bool          `yaml:"keep_previous"`
	Debounce          time.Duration `yaml:"debounce"`
	LowStockThreshold int           `yaml:"low_stock_threshold"`
}

type Config struct {
	Inventory ScreenConfig `yaml:"inventory"`
	Orders    ScreenConfig `yaml:"orders"`
	Delivery  ScreenConfig `yaml:"delivery"`
	Feedback  ScreenConfig `yaml:"feedback"`
	Issues    ScreenConfig `yaml:"issues"`
	Dashboard ScreenConfig `yaml:"dashboard"`
}

// LoadConfig reads the embedded defaults and overlays path when it is set.
// Keys missing from the override file keep their default.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse default screen config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read screen config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse screen config %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	screens := map[string]*ScreenConfig{
		"inventory": &c.Inventory,
		"orders":    &c.Orders,
		"delivery":  &c.Delivery,
		"feedback":  &c.Feedback,
		"issues":    &c.Issues,
		"dashboard": &c.Dashboard,
	}
	for name, s := range screens {
		// the backend only paginates the server screens; Inventory gets the whole catalogue
		want := PaginationServer
		if name == "inventory" || name == "dashboard" {
			want = PaginationClient
		}
		switch s.Pagination {
		case "":
			s.Pagination = want
		case want:
		default:
			return fmt.Errorf("screen %s: pagination must be %s, got %q", name, want, s.Pagination)
		}
		if s.PageSize < 0 || s.PollInterval < 0 || s.Debounce < 0 || s.LowStockThreshold < 0 {
			return fmt.Errorf("screen %s: negative values are not allowed", name)
		}
		if s.PageSize == 0 {
			s.PageSize = filter.DefaultPageSize
		}
		if s.LowStockThreshold == 0 {
			s.LowStockThreshold = filter.DefaultLowStockThreshold
		}
	}
	return nil
}
