package workload

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config describes a concurrent workload against a doublehash.Map.
type Config struct {
	// Writers insert every key of [KeyFrom, KeyTo) Rounds times.
	Writers int `toml:"writers"`
	// Readers get every key of [KeyFrom, KeyTo) Rounds times while the
	// writers run.
	Readers int   `toml:"readers"`
	KeyFrom int32 `toml:"key-from"`
	KeyTo   int32 `toml:"key-to"`
	Rounds  int   `toml:"rounds"`
	// DeleteEvery makes writers delete every nth key of the range right
	// after inserting it. Zero disables deletes.
	DeleteEvery     int `toml:"delete-every"`
	InitialCapacity int `toml:"initial-capacity"`
	// PoolSize bounds the number of goroutines running tasks.
	PoolSize int `toml:"pool-size"`
}

// DefaultConfig is ten writers and ten readers over keys [-200, 200).
func DefaultConfig() Config {
	return Config{
		Writers:         10,
		Readers:         10,
		KeyFrom:         -200,
		KeyTo:           200,
		Rounds:          1,
		InitialCapacity: 32,
		PoolSize:        20,
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decoding workload config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown keys in workload config %s: %v", path, undecoded)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Writers < 1:
		return errors.Errorf("writers must be positive, got %d", c.Writers)
	case c.Readers < 0:
		return errors.Errorf("readers must not be negative, got %d", c.Readers)
	case c.KeyFrom >= c.KeyTo:
		return errors.Errorf("key range [%d, %d) is empty", c.KeyFrom, c.KeyTo)
	case c.Rounds < 1:
		return errors.Errorf("rounds must be positive, got %d", c.Rounds)
	case c.DeleteEvery < 0:
		return errors.Errorf("delete-every must not be negative, got %d", c.DeleteEvery)
	case c.InitialCapacity < 2:
		return errors.Errorf("initial-capacity must be at least 2, got %d", c.InitialCapacity)
	case c.PoolSize < 1:
		return errors.Errorf("pool-size must be positive, got %d", c.PoolSize)
	}
	return nil
}

func (c Config) keys() int {
	return int(int64(c.KeyTo) - int64(c.KeyFrom))
}

// deleted reports whether writers delete k after inserting it.
func (c Config) deleted(k int32) bool {
	return c.DeleteEvery > 0 && (int64(k)-int64(c.KeyFrom))%int64(c.DeleteEvery) == 0
}

// ExpectedLen is what Map.Len must report once every writer has finished:
// one per insert minus one per delete.
func (c Config) ExpectedLen() int {
	perPass := c.keys()
	if c.DeleteEvery > 0 {
		perPass -= (c.keys() + c.DeleteEvery - 1) / c.DeleteEvery
	}
	return c.Writers * c.Rounds * perPass
}
