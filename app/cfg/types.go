package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SeedFile          string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int
	FetchTimeout      int
	MaxItems          int
	MaxSummaryLength  int
	APIAccessKey      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
