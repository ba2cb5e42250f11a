package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	yml := "output_dir: out\nwarehouse:\n  database: ANALYTICS\n  table: INCIDENTS\n"
	if err := os.WriteFile(cfgFile, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRIMELENS_TOP_N", "7")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acct-1")
	t.Setenv("SNOWFLAKE_USER", "analyst")

	c, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.OutputDir != "out" {
		t.Errorf("output_dir = %q", c.OutputDir)
	}
	if c.TopN != 7 {
		t.Errorf("top_n from env = %d", c.TopN)
	}
	if c.DashboardTopN != 10 || c.MaxFileMB != 50 || c.Source != "file" {
		t.Errorf("defaults not applied: %+v", c)
	}
	w := c.Warehouse
	if w.Account != "acct-1" || w.User != "analyst" {
		t.Errorf("SNOWFLAKE_* not bound: %+v", w)
	}
	if w.Database != "ANALYTICS" || w.Table != "INCIDENTS" || w.Schema != "STATISTICS" {
		t.Errorf("warehouse file/defaults wrong: %+v", w)
	}
	if w.UploadTable != "CHICAGO_CRIME" || w.Stage != "@~/staged" {
		t.Errorf("upload defaults wrong: %+v", w)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_PrefixedEnvWinsOverSnowflakeEnv(t *testing.T) {
	t.Setenv("CRIMELENS_WAREHOUSE_ACCOUNT", "primary")
	t.Setenv("SNOWFLAKE_ACCOUNT", "fallback")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Warehouse.Account != "primary" {
		t.Fatalf("account = %q", c.Warehouse.Account)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	c.Source = "warehouse"
	c.Warehouse.Table = "CRIMES"
	if err := Save(c, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "warehouse" || got.Warehouse.Table != "CRIMES" {
		t.Fatalf("saved values lost: %+v", got)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v", info.Mode().Perm())
	}
}

func TestValidate(t *testing.T) {
	c := &Global{Source: "s3", TopN: 5, DashboardTopN: 10, MaxFileMB: 50}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected invalid source")
	}
	c.Source = "file"
	c.TopN = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("expected invalid top_n")
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "CRIMELENS_TEST_DOTENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })
	p := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(p, []byte(key+"=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("%s = %q", key, got)
	}
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte("warehouse:\n  user: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNOWFLAKE_PASSWORD", "s3cr3t-from-env")
	t.Setenv("DATABASE_URL", "postgres://u:pw@h/db")
	t.Setenv("CRIMELENS_TOP_N", "9")

	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Warehouse.Password != "" || c.Warehouse.DSN != "" || c.TopN != 5 {
		t.Fatalf("environment leaked into file layer: %+v", c)
	}
	if c.Warehouse.User != "from-file" || c.Warehouse.Schema != "STATISTICS" {
		t.Fatalf("file values or defaults missing: %+v", c.Warehouse)
	}
}
