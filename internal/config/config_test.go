package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("failed to set env var: %v", err)
		}
	}
	t.Cleanup(func() {
		for k := range kv {
			if err := os.Unsetenv(k); err != nil {
				t.Errorf("failed to unset env var: %v", err)
			}
		}
	})
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				setEnv(t, map[string]string{tt.key: tt.value})
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				setEnv(t, map[string]string{tt.key: tt.value})
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", key: "TEST_BOOL", value: "true", def: false, expected: true},
		{name: "false value", key: "TEST_BOOL_FALSE", value: "false", def: true, expected: false},
		{name: "invalid value uses default", key: "TEST_BOOL_INVALID", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", key: "TEST_BOOL_MISSING", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				setEnv(t, map[string]string{tt.key: tt.value})
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a.example.com , "b.example.com",, 'c' `)
	want := []string{"a.example.com", "b.example.com", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"SHELF_SESSION_BACKEND": "memory",
		"SHELF_DRIVE_TYPE":      "memory",
	})

	cfg := Load()

	if cfg.OwnerPassword != "admin123" || cfg.GuestPassword != "guest456" {
		t.Errorf("default secrets = %q/%q, want admin123/guest456", cfg.OwnerPassword, cfg.GuestPassword)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
	if cfg.FetchUserAgent != "Mozilla/5.0" {
		t.Errorf("FetchUserAgent = %q, want Mozilla/5.0", cfg.FetchUserAgent)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty for memory backend", cfg.RedisAddr)
	}
	if cfg.SeedFile != "" || cfg.SeedInterval != 5*time.Minute {
		t.Errorf("seed = %q every %v, want disabled every 5m", cfg.SeedFile, cfg.SeedInterval)
	}
}

func TestLoadRedisRequiresAddr(t *testing.T) {
	setEnv(t, map[string]string{
		"SHELF_SESSION_BACKEND": "redis",
		"SHELF_DRIVE_TYPE":      "memory",
	})

	defer func() {
		if r := recover(); r == nil {
			t.Error("Load() should panic without SHELF_REDIS_ADDR")
		}
	}()
	Load()
}

func TestDriveConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DriveConfig
		wantErr bool
	}{
		{name: "memory", cfg: DriveConfig{Type: "memory"}},
		{name: "filesystem with root", cfg: DriveConfig{Type: "filesystem", Root: "/tmp/x"}},
		{name: "filesystem without root", cfg: DriveConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 with bucket", cfg: DriveConfig{Type: "s3", S3Bucket: "links"}},
		{name: "s3 without bucket", cfg: DriveConfig{Type: "s3"}, wantErr: true},
		{name: "s3 half credentials", cfg: DriveConfig{Type: "s3", S3Bucket: "links", S3AccessKey: "AK"}, wantErr: true},
		{name: "unknown", cfg: DriveConfig{Type: "gdrive"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
