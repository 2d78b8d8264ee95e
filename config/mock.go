package config

import "fmt"

// MockConfig configures the local mock optimizer service.
type MockConfig struct {
	Address  string `json:"address"`
	Seed     uint64 `json:"seed"`
	Months   int    `json:"months"`
	Clusters []int  `json:"clusters"`
	Cars     int    `json:"cars"`
}

// SetDefaults mirrors the reference cooperative: three clusters of 3, 3 and
// 12 households over six months sharing one car.
func (c *MockConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:7999"
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Months == 0 {
		c.Months = 6
	}
	if len(c.Clusters) == 0 {
		c.Clusters = []int{3, 3, 12}
	}
	if c.Cars == 0 {
		c.Cars = 1
	}
}

// Validate checks the simulation parameters.
func (c MockConfig) Validate() error {
	if c.Months < 1 {
		return fmt.Errorf("mock.months must be positive")
	}
	if c.Cars < 1 {
		return fmt.Errorf("mock.cars must be positive")
	}
	if len(c.Clusters) > 3 {
		return fmt.Errorf("mock.clusters supports at most 3 clusters")
	}
	total := 0
	for _, n := range c.Clusters {
		if n < 0 {
			return fmt.Errorf("mock.clusters cannot be negative")
		}
		total += n
	}
	if total == 0 {
		return fmt.Errorf("mock.clusters must contain at least one household")
	}
	return nil
}
