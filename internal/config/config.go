package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models labdesk.yml.
type Config struct {
	Lab struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"lab"`
	Billing struct {
		Currency     string  `yaml:"currency"`
		TaxPercent   float64 `yaml:"tax_percent"`
		NumberPrefix string  `yaml:"number_prefix"`
	} `yaml:"billing"`
	Receipts struct {
		RequireRejectNote bool `yaml:"require_reject_note"`
	} `yaml:"receipts"`
	RBAC struct {
		Roles map[string]RBACRole `yaml:"roles"`
	} `yaml:"rbac"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type RBACRole struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type Webhook struct {
	URL    string   `yaml:"url"`
	Events []string `yaml:"events"`
	Secret string   `yaml:"secret"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with ld config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Lab.ID == "" {
		return fmt.Errorf("config.lab.id is required")
	}
	if c.Billing.Currency == "" {
		return fmt.Errorf("config.billing.currency is required")
	}
	if len(c.Billing.Currency) != 3 {
		return fmt.Errorf("config.billing.currency must be a 3-letter code")
	}
	if c.Billing.TaxPercent < 0 || c.Billing.TaxPercent > 100 {
		return fmt.Errorf("config.billing.tax_percent must be between 0 and 100")
	}
	if c.Billing.NumberPrefix == "" {
		return fmt.Errorf("config.billing.number_prefix is required")
	}
	if len(c.RBAC.Roles) > 0 {
		if _, ok := c.RBAC.Roles["admin"]; !ok {
			return fmt.Errorf("config.rbac.roles must include admin")
		}
		for roleID, role := range c.RBAC.Roles {
			if roleID == "" {
				return fmt.Errorf("config.rbac.roles contains empty role id")
			}
			for _, perm := range role.Permissions {
				if perm == "" {
					return fmt.Errorf("role %s has empty permission id", roleID)
				}
			}
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "labdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(labID string) string {
	return fmt.Sprintf(defaultTemplate, labID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a lab.
func Default(labID string) *Config {
	var cfg Config
	cfg.Lab.ID = labID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, labID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `lab:
  id: %s
  name: ""

billing:
  currency: USD
  tax_percent: 0
  number_prefix: QT

receipts:
  require_reject_note: true

rbac:
  roles:
    admin:
      description: "Full access"
      permissions: [directory.manage, rfi.manage, rfi.respond, receipt.manage, receipt.decide, quote.manage, quote.issue]
    coordinator:
      description: "Runs day-to-day client communication"
      permissions: [directory.manage, rfi.manage, receipt.manage]
    reviewer:
      description: "Approves receipts and official responses"
      permissions: [rfi.respond, receipt.decide]
    billing:
      description: "Prepares and issues quotations"
      permissions: [quote.manage, quote.issue]
`
