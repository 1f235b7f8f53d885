package main

import (
	"fmt"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
	"gopkg.in/yaml.v3"

	"github.com/sixlowpan/rpl/internal/rpl"
)

// logConfig mirrors the teacher's logSettings: where logs go and how
// verbose they are.
type logConfig struct {
	File       string `yaml:"file"`
	Verbose    bool   `yaml:"verbose"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local_time"`
	MaxBackups int    `yaml:"max_backups"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
}

// metricsConfig controls the optional Prometheus exporter, following the
// teacher's internal/prometheus.Config shape.
type metricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BindHost string `yaml:"bind_host"`
	BindPort int    `yaml:"bind_port"`
}

// instanceConfig is the on-disk shape of one [rpl.InstanceConfig]. OF is
// a name ("of0" or "mrhof") rather than an [rpl.ObjectiveFunction]
// value, since that interface has no YAML representation of its own.
type instanceConfig struct {
	ID                       uint8         `yaml:"id"`
	IsRoot                   bool          `yaml:"is_root"`
	MOP                      uint8         `yaml:"mop"`
	ObjectiveFunction        string        `yaml:"objective_function"`
	MinHopRankIncrease       uint16        `yaml:"min_hop_rank_increase"`
	MaxRankIncrease          uint16        `yaml:"max_rank_increase"`
	DIOIntervalMin           uint8         `yaml:"dio_interval_min"`
	DIOIntervalDoubling      uint8         `yaml:"dio_interval_doubling"`
	DIORedundancy            uint8         `yaml:"dio_redundancy"`
	DefaultLifetime          uint8         `yaml:"default_lifetime"`
	LifetimeUnit             uint16        `yaml:"lifetime_unit"`
	MetricType               uint8         `yaml:"metric_type"`
	DAOMaxRetransmissions    int           `yaml:"dao_max_retransmissions"`
	DAORetransmissionTimeout time.Duration `yaml:"dao_retransmission_timeout"`
	LeafOnly                 bool          `yaml:"leaf_only"`
	RefreshDAORoutes         bool          `yaml:"refresh_dao_routes"`
	RepairOnNACK             bool          `yaml:"repair_on_nack"`
}

// config is the top-level rpld configuration document.
type config struct {
	// Interface is the network interface rpld listens and sends on.
	Interface string `yaml:"interface"`

	// StorePath is where [rplstore.Store] persists DAO sequence counters
	// and routes across restarts.
	StorePath string `yaml:"store_path"`

	Log       logConfig        `yaml:"log"`
	Metrics   metricsConfig    `yaml:"metrics"`
	Instances []instanceConfig `yaml:"instances"`
}

// type check
var _ validate.Interface = (*config)(nil)

// Validate implements the [validate.Interface] interface for *config.
func (c *config) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	var errs []error

	if c.Interface == "" {
		errs = append(errs, errors.Error("interface: no value"))
	}

	if len(c.Instances) == 0 {
		errs = append(errs, errors.Error("instances: no value"))
	}

	for i := range c.Instances {
		inst := &c.Instances[i]
		switch inst.ObjectiveFunction {
		case "of0", "mrhof":
			// Valid.
		default:
			errs = append(errs, fmt.Errorf("instances: id %d: objective_function: unknown %q",
				inst.ID, inst.ObjectiveFunction))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// readConfig loads and validates the YAML document at path.
func readConfig(path string) (c *config, err error) {
	defer func() { err = errors.Annotate(err, "reading config: %w") }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c = &config{}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshaling: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// toInstanceConfig converts the YAML form into an [rpl.InstanceConfig],
// resolving its Objective Function by name and wiring it to links for
// OF0's direct ETX lookups.
func (ic instanceConfig) toInstanceConfig(links rpl.LinkStats) (out rpl.InstanceConfig) {
	var of rpl.ObjectiveFunction
	switch ic.ObjectiveFunction {
	case "mrhof":
		mrhof := rpl.NewMRHOF(ic.MinHopRankIncrease)
		mrhof.IsRoot = ic.IsRoot
		of = mrhof
	default:
		of = rpl.NewOF0(links, ic.MinHopRankIncrease)
	}

	return rpl.InstanceConfig{
		ID:                       ic.ID,
		IsRoot:                   ic.IsRoot,
		MOP:                      rpl.ModeOfOperation(ic.MOP),
		OF:                       of,
		MinHopRankIncrease:       ic.MinHopRankIncrease,
		MaxRankIncrease:          ic.MaxRankIncrease,
		DIOIntervalMin:           ic.DIOIntervalMin,
		DIOIntervalDoubling:      ic.DIOIntervalDoubling,
		DIORedundancy:            ic.DIORedundancy,
		DefaultLifetime:          ic.DefaultLifetime,
		LifetimeUnit:             ic.LifetimeUnit,
		MetricType:               rpl.MetricContainerType(ic.MetricType),
		DAOMaxRetransmissions:    ic.DAOMaxRetransmissions,
		DAORetransmissionTimeout: ic.DAORetransmissionTimeout,
		LeafOnly:                 ic.LeafOnly,
		RefreshDAORoutes:         ic.RefreshDAORoutes,
		RepairOnNACK:             ic.RepairOnNACK,
	}
}
