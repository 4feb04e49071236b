package config

import (
	"testing"
	"time"

	"github.com/lakegate/lakegate/pkg/share/tasks"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.API.ReadTimeout)
	}
	if cfg.API.WriteTimeout != 10*time.Second {
		t.Errorf("Expected default write timeout 10s, got %v", cfg.API.WriteTimeout)
	}
	if cfg.API.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.API.IdleTimeout)
	}
	if cfg.API.JWT.AccessTokenDuration != 15*time.Minute {
		t.Errorf("Expected default access token duration 15m, got %v", cfg.API.JWT.AccessTokenDuration)
	}
}

func TestApplyDefaults_Tasks(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Tasks.Verify.Interval != tasks.DefaultVerifyInterval {
		t.Errorf("Expected default verify interval %v, got %v", tasks.DefaultVerifyInterval, cfg.Tasks.Verify.Interval)
	}
	if cfg.Tasks.Reapply.Interval != tasks.DefaultReapplyInterval {
		t.Errorf("Expected default reapply interval %v, got %v", tasks.DefaultReapplyInterval, cfg.Tasks.Reapply.Interval)
	}
	if cfg.Tasks.Expire.Interval != tasks.DefaultExpireInterval {
		t.Errorf("Expected default expire interval %v, got %v", tasks.DefaultExpireInterval, cfg.Tasks.Expire.Interval)
	}
	if !cfg.Tasks.Verify.IsEnabled() {
		t.Error("Expected verify task to default to enabled")
	}
}

func TestApplyDefaults_Service(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Service.LockTTL == 0 {
		t.Error("Expected default lock TTL to be set")
	}
	if cfg.Dispatcher.Mode != "local" {
		t.Errorf("Expected default dispatcher mode 'local', got %q", cfg.Dispatcher.Mode)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/lakegate.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Dispatcher:      DispatcherConfig{Mode: "subprocess"},
	}

	ApplyDefaults(cfg)

	// Verify explicit values were preserved
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/lakegate.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Dispatcher.Mode != "subprocess" {
		t.Errorf("Expected explicit dispatcher mode to be preserved, got %q", cfg.Dispatcher.Mode)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	// The default config should pass validation
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}
