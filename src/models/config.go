package models

// MConfig Structure
type MConfig struct {
	Name        string            `yaml:"name"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	LogLevel    string            `yaml:"log_level"`
	Debug       bool              `yaml:"debug"`
	GrpcHost    string            `yaml:"grpc_host"`
	GrpcPort    int               `yaml:"grpc_port"`
	ServiceName string            `yaml:"service_name"`
	Items       []string          `yaml:"items"`
	HistorySize int               `yaml:"history_size"`
	Dictionary  MDictionaryConfig `yaml:"dictionary"`
	Session     MSessionConfig    `yaml:"session"`
	Storage     MStorageConfig    `yaml:"storage"`
	Sinks       MSinksConfig      `yaml:"sinks"`
	Scheduler   MSchedulerConfig  `yaml:"scheduler"`
}

type MDictionaryConfig struct {
	FieldPath string `yaml:"field_path"` // RDMFieldDictionary
	EnumPath  string `yaml:"enum_path"`  // enumtype.def
}

type MSessionConfig struct {
	URL            string `yaml:"url"`
	SubjectPrefix  string `yaml:"subject_prefix"`
	QueueSize      int    `yaml:"queue_size"`
	ConnectRetries int    `yaml:"connect_retries"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"` // 0 keeps every record
}

type MSinksConfig struct {
	Websocket bool   `yaml:"websocket"`
	Storage   bool   `yaml:"storage"`
	NATS      bool   `yaml:"nats"`
	Subject   string `yaml:"subject"` // republish prefix for the NATS sink
}

type MSchedulerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	MIC             string `yaml:"mic"` // ISO 10383 market identifier, e.g. "xnys"
	IntervalSeconds int    `yaml:"interval_seconds"`
}
