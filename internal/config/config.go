package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	// Файл конфигурации (YAML)
	ConfigFile string `yaml:"-"`

	// Сбор метрик
	Interval     time.Duration `yaml:"interval"`
	PublishEvery int           `yaml:"publish_every"`
	WindowSize   int           `yaml:"window_size"`
	DiskPath     string        `yaml:"disk_path"`

	// HTTP API
	ListenAddr string `yaml:"listen"`

	// Общие настройки
	LogLevel string `yaml:"log_level"`

	// Экспорт в Zabbix
	ZabbixEnable     bool          `yaml:"zabbix_enable"`
	ZabbixServer     string        `yaml:"zabbix_server"`
	ZabbixPort       int           `yaml:"zabbix_port"`
	ZabbixHost       string        `yaml:"zabbix_host"`
	ExportInterval   time.Duration `yaml:"export_interval"`
	HTTPTimeout      time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoffBase time.Duration `yaml:"retry_backoff"`

	// Профилирование
	ProfileEnable  bool   `yaml:"profile"`
	ProfileCPUFile string `yaml:"profile_cpu"`
	ProfileMemFile string `yaml:"profile_mem"`
	ProfileTime    int    `yaml:"profile_time"`
}

// NewConfig создает новую конфигурацию с значениями по умолчанию
func NewConfig() *Config {
	return &Config{
		Interval:         1 * time.Second,
		PublishEvery:     5,
		WindowSize:       5,
		DiskPath:         "/",
		ListenAddr:       ":8080",
		LogLevel:         "info",
		ZabbixEnable:     false,
		ZabbixServer:     "localhost",
		ZabbixPort:       10051,
		ZabbixHost:       "",
		ExportInterval:   0,
		HTTPTimeout:      10 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: 1 * time.Second,
		ProfileEnable:    false,
		ProfileCPUFile:   "",
		ProfileMemFile:   "",
		ProfileTime:      30,
	}
}

// PublishInterval период публикации срезов
func (c *Config) PublishInterval() time.Duration {
	return c.Interval * time.Duration(c.PublishEvery)
}

// Load загружает конфигурацию из файла, переменных окружения и флагов.
// Приоритет по возрастанию: значения по умолчанию, файл, окружение, флаги.
func (c *Config) Load(cmd *cobra.Command) error {
	if path := os.Getenv("HOSTMON_CONFIG"); path != "" {
		c.ConfigFile = path
	}
	if cmd.Flags().Changed("config") {
		c.ConfigFile, _ = cmd.Flags().GetString("config")
	}
	if c.ConfigFile != "" {
		if err := c.LoadFile(c.ConfigFile); err != nil {
			return err
		}
	}

	// Затем из переменных окружения
	c.loadFromEnv()

	// Затем из флагов (они имеют приоритет)
	flags := cmd.Flags()
	if flags.Changed("interval") {
		intervalSec, _ := flags.GetInt("interval")
		c.Interval = time.Duration(intervalSec) * time.Second
	}
	if flags.Changed("publish-every") {
		c.PublishEvery, _ = flags.GetInt("publish-every")
	}
	if flags.Changed("window-size") {
		c.WindowSize, _ = flags.GetInt("window-size")
	}
	if flags.Changed("disk-path") {
		c.DiskPath, _ = flags.GetString("disk-path")
	}
	if flags.Changed("listen") {
		c.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("zabbix") {
		c.ZabbixEnable, _ = flags.GetBool("zabbix")
	}
	if flags.Changed("zabbix-server") {
		c.ZabbixServer, _ = flags.GetString("zabbix-server")
	}
	if flags.Changed("zabbix-port") {
		c.ZabbixPort, _ = flags.GetInt("zabbix-port")
	}
	if flags.Changed("zabbix-host") {
		c.ZabbixHost, _ = flags.GetString("zabbix-host")
	}
	if flags.Changed("export-interval") {
		sec, _ := flags.GetInt("export-interval")
		c.ExportInterval = time.Duration(sec) * time.Second
	}
	if flags.Changed("max-retries") {
		c.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("profile") {
		c.ProfileEnable, _ = flags.GetBool("profile")
	}
	if flags.Changed("profile-cpu") {
		c.ProfileCPUFile, _ = flags.GetString("profile-cpu")
	}
	if flags.Changed("profile-mem") {
		c.ProfileMemFile, _ = flags.GetString("profile-mem")
	}
	if flags.Changed("profile-time") {
		c.ProfileTime, _ = flags.GetInt("profile-time")
	}

	if c.ExportInterval == 0 {
		c.ExportInterval = c.PublishInterval()
	}

	return c.Validate()
}

// LoadFile читает YAML файл поверх текущих значений
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv загружает конфигурацию из переменных окружения
func (c *Config) loadFromEnv() {
	if interval, ok := envDuration("HOSTMON_INTERVAL"); ok {
		c.Interval = interval
	}
	if n, ok := envInt("HOSTMON_PUBLISH_EVERY"); ok {
		c.PublishEvery = n
	}
	if n, ok := envInt("HOSTMON_WINDOW_SIZE"); ok {
		c.WindowSize = n
	}
	if path := os.Getenv("HOSTMON_DISK_PATH"); path != "" {
		c.DiskPath = path
	}
	if addr := os.Getenv("HOSTMON_LISTEN"); addr != "" {
		c.ListenAddr = addr
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if enableStr := os.Getenv("ZABBIX_ENABLE"); enableStr != "" {
		if enable, err := strconv.ParseBool(enableStr); err == nil {
			c.ZabbixEnable = enable
		}
	}
	if server := os.Getenv("ZABBIX_SERVER"); server != "" {
		c.ZabbixServer = server
	}
	if port, ok := envInt("ZABBIX_PORT"); ok {
		c.ZabbixPort = port
	}
	if host := os.Getenv("ZABBIX_HOST"); host != "" {
		c.ZabbixHost = host
	}
	if interval, ok := envDuration("ZABBIX_EXPORT_INTERVAL"); ok {
		c.ExportInterval = interval
	}
	if timeout, ok := envDuration("ZABBIX_TIMEOUT"); ok {
		c.HTTPTimeout = timeout
	}
	if retries, ok := envInt("ZABBIX_MAX_RETRIES"); ok {
		c.MaxRetries = retries
	}
	if profileStr := os.Getenv("PROFILE_ENABLE"); profileStr != "" {
		if profile, err := strconv.ParseBool(profileStr); err == nil {
			c.ProfileEnable = profile
		}
	}
	if cpuFile := os.Getenv("PROFILE_CPU_FILE"); cpuFile != "" {
		c.ProfileCPUFile = cpuFile
	}
	if memFile := os.Getenv("PROFILE_MEM_FILE"); memFile != "" {
		c.ProfileMemFile = memFile
	}
	if profileTime, ok := envInt("PROFILE_TIME"); ok {
		c.ProfileTime = profileTime
	}
}

// envInt читает целое из переменной окружения
func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// envDuration принимает как число секунд, так и строку вида "500ms"
func envDuration(key string) (time.Duration, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	if sec, err := strconv.Atoi(s); err == nil {
		return time.Duration(sec) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.PublishEvery <= 0 {
		return fmt.Errorf("publish cadence must be positive")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if c.DiskPath == "" {
		return fmt.Errorf("disk path is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}

	// Проверяем уровень логирования
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	// Валидация экспорта
	if c.ZabbixEnable {
		if c.ZabbixServer == "" {
			return fmt.Errorf("zabbix server is required")
		}
		if c.ZabbixPort <= 0 || c.ZabbixPort > 65535 {
			return fmt.Errorf("invalid zabbix port: %d", c.ZabbixPort)
		}
		if c.ExportInterval < 0 {
			return fmt.Errorf("export interval must not be negative")
		}
		if c.MaxRetries <= 0 {
			return fmt.Errorf("max retries must be positive")
		}
	}

	// Валидация профилирования
	if c.ProfileEnable && c.ProfileTime <= 0 {
		return fmt.Errorf("profile time must be positive")
	}

	return nil
}

// AddFlags добавляет флаги в cobra команду
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to YAML config file")
	cmd.Flags().Int("interval", 1, "Sampling interval in seconds")
	cmd.Flags().Int("publish-every", 5, "Publish a snapshot every N samples")
	cmd.Flags().Int("window-size", 5, "Number of samples in the averaging window")
	cmd.Flags().String("disk-path", "/", "Mount point for disk usage")
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	// Флаги экспорта
	cmd.Flags().Bool("zabbix", false, "Push snapshots to Zabbix trapper items")
	cmd.Flags().String("zabbix-server", "localhost", "Zabbix server or proxy host")
	cmd.Flags().Int("zabbix-port", 10051, "Zabbix trapper port")
	cmd.Flags().String("zabbix-host", "", "Host name in Zabbix (defaults to the local hostname)")
	cmd.Flags().Int("export-interval", 0, "Export interval in seconds (defaults to the publish interval)")
	cmd.Flags().Int("max-retries", 3, "Send attempts per snapshot")

	// Флаги профилирования
	cmd.Flags().Bool("profile", false, "Enable profiling")
	cmd.Flags().String("profile-cpu", "", "CPU profile output file")
	cmd.Flags().String("profile-mem", "", "Memory profile output file")
	cmd.Flags().Int("profile-time", 30, "CPU profile duration in seconds")
}
