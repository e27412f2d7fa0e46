package config

type Seed struct{}

var _ SeedConfig = Seed{}

// GetSeedUsername is empty unless SEED_USERNAME is set.
func (Seed) GetSeedUsername() string {
	return GetEnv("SEED_USERNAME", "")
}

func (Seed) GetSeedPassword() string {
	return GetEnv("SEED_PASSWORD", "")
}
