package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// Config 全局配置结构体
type Config struct {
	Kiosk    KioskConfig    `mapstructure:"kiosk"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Keypad   KeypadConfig   `mapstructure:"keypad"`
	Motor    MotorConfig    `mapstructure:"motor"`
	Gate     GateConfig     `mapstructure:"gate"`
	Buzzer   BuzzerConfig   `mapstructure:"buzzer"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Card     CardConfig     `mapstructure:"card"`
	Hardware HardwareConfig `mapstructure:"hardware"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// KioskConfig 售货机业务配置
type KioskConfig struct {
	InitialBalance int           `mapstructure:"initial_balance"`  // 机内找零余额
	LowBalanceMark int           `mapstructure:"low_balance_mark"` // 低于该值时首页提示现金不足
	MinUnit        int           `mapstructure:"min_unit"`         // 补充余额的最小单位
	MaxDigits      int           `mapstructure:"max_digits"`       // 金额最多输入位数
	PageSize       int           `mapstructure:"page_size"`
	MessageDelay   time.Duration `mapstructure:"message_delay"` // 提示信息停留时间
	CashGuard      bool          `mapstructure:"cash_guard"`    // 余额不足商品价格时拒绝现金支付
}

// AdminConfig 管理员配置
type AdminConfig struct {
	Passcode     string        `mapstructure:"passcode"`      // 明文口令，仅在未配置哈希时使用
	PasscodeHash string        `mapstructure:"passcode_hash"` // argon2id 哈希
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Lockout      time.Duration `mapstructure:"lockout"`
	PasscodeLen  int           `mapstructure:"passcode_len"`
	RestockBatch int           `mapstructure:"restock_batch"`
}

// KeypadConfig 矩阵键盘配置
type KeypadConfig struct {
	RowPins     []int         `mapstructure:"row_pins"`
	ColPins     []int         `mapstructure:"col_pins"`
	RowSettle   time.Duration `mapstructure:"row_settle"`
	Debounce    time.Duration `mapstructure:"debounce"`
	PollStep    time.Duration `mapstructure:"poll_step"`
	ChordHold   time.Duration `mapstructure:"chord_hold"`
	ChordStep   time.Duration `mapstructure:"chord_step"`
	IdleBackoff time.Duration `mapstructure:"idle_backoff"` // 无按键时主循环的休眠
}

// MotorConfig 直流电机配置
type MotorConfig struct {
	PWMPin       int           `mapstructure:"pwm_pin"`
	ForwardPin   int           `mapstructure:"forward_pin"`
	ReversePin   int           `mapstructure:"reverse_pin"`
	CashSpeed    int           `mapstructure:"cash_speed"`
	CashDuration time.Duration `mapstructure:"cash_duration"`
	RampStep     int           `mapstructure:"ramp_step"`
	RampInterval time.Duration `mapstructure:"ramp_interval"`
}

// GateConfig 出货舵机配置
type GateConfig struct {
	OpenValue  int           `mapstructure:"open_value"`
	CloseValue int           `mapstructure:"close_value"`
	Range      int           `mapstructure:"range"`
	Dwell      time.Duration `mapstructure:"dwell"`
}

// BuzzerConfig 蜂鸣器配置
type BuzzerConfig struct {
	Pin     int  `mapstructure:"pin"`
	Enabled bool `mapstructure:"enabled"`
}

// SensorConfig 环境传感器配置
type SensorConfig struct {
	DHTPin         int `mapstructure:"dht_pin"`
	LightChannel   int `mapstructure:"light_channel"`
	LightThreshold int `mapstructure:"light_threshold"` // 大于该值视为夜间
	ADCAddress     int `mapstructure:"adc_address"`
}

// CardConfig 读卡器配置
type CardConfig struct {
	Command    string        `mapstructure:"command"`
	Args       []string      `mapstructure:"args"`
	ResultFile string        `mapstructure:"result_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// HardwareConfig 硬件后端配置
type HardwareConfig struct {
	Backend string       `mapstructure:"backend"` // sim | serial | gpio
	Serial  SerialConfig `mapstructure:"serial"`
}

// SerialConfig 串口配置
type SerialConfig struct {
	Port          string        `mapstructure:"port"`
	BaudRate      int           `mapstructure:"baud_rate"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	RetryTimes    int           `mapstructure:"retry_times"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ServerConfig 运维接口配置
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenExpiry     time.Duration `mapstructure:"token_expiry"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		v, loaded, err = load(configPath)
		if err != nil {
			return
		}
		cfg = loaded
	})
	return err
}

// Load 读取配置但不修改全局实例
func Load(configPath string) (*Config, error) {
	_, c, err := load(configPath)
	return c, err
}

func load(configPath string) (*viper.Viper, *Config, error) {
	// .env 文件不存在时忽略
	_ = godotenv.Load()

	vp := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	// 设置环境变量前缀
	vp.SetEnvPrefix("VENDING_KIOSK")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	if err := vp.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigLoad)
		}
	}

	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrConfigParse)
	}

	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	return vp, c, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 售货机默认配置
	v.SetDefault("kiosk.initial_balance", 100000)
	v.SetDefault("kiosk.low_balance_mark", 10000)
	v.SetDefault("kiosk.min_unit", 100)
	v.SetDefault("kiosk.max_digits", 5)
	v.SetDefault("kiosk.page_size", 5)
	v.SetDefault("kiosk.message_delay", "2s")
	v.SetDefault("kiosk.cash_guard", false)

	// 管理员默认配置
	v.SetDefault("admin.passcode", "2443")
	v.SetDefault("admin.passcode_hash", "")
	v.SetDefault("admin.max_attempts", 3)
	v.SetDefault("admin.lockout", "30s")
	v.SetDefault("admin.passcode_len", 4)
	v.SetDefault("admin.restock_batch", 10)

	// 键盘默认配置
	v.SetDefault("keypad.row_pins", []int{5, 6, 4, 17})
	v.SetDefault("keypad.col_pins", []int{27, 22, 16, 20})
	v.SetDefault("keypad.row_settle", "100us")
	v.SetDefault("keypad.debounce", "50ms")
	v.SetDefault("keypad.poll_step", "10ms")
	v.SetDefault("keypad.chord_hold", "1500ms")
	v.SetDefault("keypad.chord_step", "100ms")
	v.SetDefault("keypad.idle_backoff", "20ms")

	// 电机默认配置
	v.SetDefault("motor.pwm_pin", 19)
	v.SetDefault("motor.forward_pin", 23)
	v.SetDefault("motor.reverse_pin", 24)
	v.SetDefault("motor.cash_speed", 50)
	v.SetDefault("motor.cash_duration", "1s")
	v.SetDefault("motor.ramp_step", 10)
	v.SetDefault("motor.ramp_interval", "500ms")

	// 舵机默认配置
	v.SetDefault("gate.open_value", 5)
	v.SetDefault("gate.close_value", 15)
	v.SetDefault("gate.range", 200)
	v.SetDefault("gate.dwell", "2s")

	v.SetDefault("buzzer.pin", 18)
	v.SetDefault("buzzer.enabled", true)

	// 传感器默认配置
	v.SetDefault("sensor.dht_pin", 26)
	v.SetDefault("sensor.light_channel", 0)
	v.SetDefault("sensor.light_threshold", 100)
	v.SetDefault("sensor.adc_address", 0x48)

	// 读卡器默认配置
	v.SetDefault("card.command", "python3")
	v.SetDefault("card.args", []string{"cardread.py"})
	v.SetDefault("card.result_file", "rfid_data.txt")
	v.SetDefault("card.timeout", "30s")

	// 硬件默认配置
	v.SetDefault("hardware.backend", "sim")
	v.SetDefault("hardware.serial.port", "/dev/ttyUSB0")
	v.SetDefault("hardware.serial.baud_rate", 115200)
	v.SetDefault("hardware.serial.read_timeout", "200ms")
	v.SetDefault("hardware.serial.retry_times", 3)
	v.SetDefault("hardware.serial.retry_interval", "1s")

	// 数据库默认配置
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file::memory:?cache=shared")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)

	// 运维接口默认配置
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_expiry", "24h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "kiosk.log")
	v.SetDefault("log.file.max_size", 20)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Keypad.RowPins) != 4 || len(c.Keypad.ColPins) != 4 {
		return apperrors.Newf(apperrors.ErrConfigValidate,
			"键盘需要4行4列引脚, 实际 %d 行 %d 列", len(c.Keypad.RowPins), len(c.Keypad.ColPins))
	}
	if c.Kiosk.MinUnit <= 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "最小单位必须为正: %d", c.Kiosk.MinUnit)
	}
	if c.Kiosk.InitialBalance < 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "初始余额不能为负: %d", c.Kiosk.InitialBalance)
	}
	if c.Kiosk.MaxDigits <= 0 || c.Kiosk.MaxDigits > 9 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "金额位数超出范围: %d", c.Kiosk.MaxDigits)
	}
	if c.Kiosk.PageSize <= 0 || c.Kiosk.PageSize > 9 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "每页条目数超出范围: %d", c.Kiosk.PageSize)
	}
	if c.Admin.MaxAttempts <= 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "最大尝试次数必须为正: %d", c.Admin.MaxAttempts)
	}
	if c.Admin.Passcode == "" && c.Admin.PasscodeHash == "" {
		return apperrors.New(apperrors.ErrConfigValidate, "未配置管理员口令")
	}
	if c.Admin.RestockBatch <= 0 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "补货批量必须为正: %d", c.Admin.RestockBatch)
	}
	if c.Motor.CashSpeed < 0 || c.Motor.CashSpeed > 100 {
		return apperrors.Newf(apperrors.ErrConfigValidate, "电机速度超出范围: %d", c.Motor.CashSpeed)
	}
	if c.Motor.ForwardPin == c.Motor.ReversePin {
		return apperrors.New(apperrors.ErrConfigValidate, "电机正反转引脚不能相同")
	}
	if c.Gate.Range <= 0 || c.Gate.OpenValue > c.Gate.Range || c.Gate.CloseValue > c.Gate.Range {
		return apperrors.Newf(apperrors.ErrConfigValidate, "舵机参数超出范围: range=%d", c.Gate.Range)
	}
	switch c.Hardware.Backend {
	case "sim", "serial", "gpio":
	default:
		return apperrors.Newf(apperrors.ErrConfigValidate, "未知的硬件后端: %s", c.Hardware.Backend)
	}
	if c.Server.Enabled && c.Server.JWTSecret == "" {
		return apperrors.New(apperrors.ErrConfigValidate, "启用运维接口时必须配置 jwt_secret")
	}
	return nil
}

// Addr 运维接口监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	if v == nil {
		return
	}
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载:", e.Name)
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}
