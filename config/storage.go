package config

// StorageConfig defines the storage backend for sessions and run state
type StorageConfig struct {
	Backend    string `hcl:"backend,optional"`     // "memory", "sqlite" or "postgres"
	Path       string `hcl:"path,optional"`        // SQLite file path (default: ".tutobot/store.db")
	ConnString string `hcl:"conn_string,optional"` // Postgres connection string
}

// Defaults fills in default values for unset fields
func (s *StorageConfig) Defaults() {
	if s.Backend == "" {
		s.Backend = "memory"
	}
	if s.Path == "" {
		s.Path = ".tutobot/store.db"
	}
}
