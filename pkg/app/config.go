package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lk2023060901/dicedeck/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 DICEDECK_GATEWAY_BASE_URL -> gateway.base_url
const EnvPrefix = "DICEDECK"

var (
	configPath string
	logPath    string
)

// LoadConfig 集成 pkg/config 提供统一加载能力，返回的 Manager 可用于监听配置文件变化
// 优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
// 配置文件缺失时，只有通过 --config 或 DICEDECK_CONFIG 显式指定才视为错误
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable directory: %w", err)
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "dicedeck.log")

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	v := viper.New()

	finalConfigPath := configPath
	explicit := pflag.CommandLine.Changed("config")
	if !explicit {
		if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
			explicit = true
		}
	}

	_, statErr := os.Stat(finalConfigPath)
	if os.IsNotExist(statErr) && explicit {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigFileNotFound, finalConfigPath)
	}
	configPath = finalConfigPath

	if pflag.CommandLine.Changed("log.path") {
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	// WithViper 必须最先应用，否则 WithDefaults 等选项会落在被替换掉的实例上
	base := []config.Option{
		config.WithViper(v),
		config.WithEnvPrefix(EnvPrefix),
		config.WithDefaults(map[string]any{"log.output_path": defaultLog}),
	}
	mgr := config.NewManager(append(base, opts...)...)

	if statErr == nil {
		if err := mgr.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := mgr.Unmarshal(target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	logPath = mgr.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
	}

	return mgr, nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}
