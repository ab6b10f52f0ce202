package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bcp.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BCP_CONFIG", path)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BCP_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	env, ok := cfg.Environment("env2")
	if !ok || env.Port != 3307 {
		t.Fatalf("expected ENV2 on 3307; got %+v, %v", env, ok)
	}
	if cfg.Session.MaxUsers != 10 || cfg.Session.MaxAge.Std() != 30*time.Minute {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Pipeline.IDChunkSize != 10000 || cfg.Pipeline.DispositionChunkSize != 5000 {
		t.Fatalf("unexpected chunk sizes %+v", cfg.Pipeline)
	}

	leads, _ := cfg.Flow(FlowLeads)
	if got := leads.FolderFor("ENV1"); got != "CMS ENV1" {
		t.Fatalf("expected CMS ENV1; got %s", got)
	}
	if p, _ := cfg.Flow(FlowAmeyo); p.Folder != "AMEYO" {
		t.Fatalf("unexpected ameyo folder %s", p.Folder)
	}
}

func TestLoad_YAMLOverridesOneFlow(t *testing.T) {
	writeConfig(t, `
environments:
  - name: ENV1
    port: 3306
  - name: ENV4
    port: 3309
flows:
  leads:
    base_path: /admins/RPA OUTPUT/GENERAL/BCP LEADS
    folder: ""
    chunk_size: 2000
    destinations: [NMKT]
session:
  max_age: 45m
pipeline:
  disposition_depth: 0
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, ok := cfg.Environment("ENV2"); ok {
		t.Fatal("environment list should be replaced by the file")
	}
	if env, ok := cfg.Environment("ENV4"); !ok || env.Port != 3309 {
		t.Fatalf("expected ENV4; got %+v", env)
	}

	leads, _ := cfg.Flow(FlowLeads)
	if leads.BasePath != "/admins/RPA OUTPUT/GENERAL/BCP LEADS" || leads.ChunkSize != 2000 {
		t.Fatalf("unexpected leads flow %+v", leads)
	}
	if efforts, ok := cfg.Flow(FlowEfforts); !ok || efforts.Folder != "CMS - AUTOSTAT" {
		t.Fatalf("efforts flow should keep its defaults; got %+v", efforts)
	}
	if cfg.Session.MaxAge.Std() != 45*time.Minute || cfg.Session.MaxUsers != 10 {
		t.Fatalf("unexpected session %+v", cfg.Session)
	}
	if cfg.Pipeline.DispositionDepth != 0 {
		t.Fatalf("expected depth 0; got %d", cfg.Pipeline.DispositionDepth)
	}
}

func TestLoad_FTPServersFromEnv(t *testing.T) {
	t.Setenv("BCP_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("NMKT_FTP_HOSTNAME", "ftp.nmkt.local")
	t.Setenv("NMKT_FTP_USERNAME", "bcp")
	t.Setenv("NMKT_FTP_PASSWORD", "secret")
	t.Setenv("PITX_FTP_HOSTNAME", "ftp.pitx.local")
	t.Setenv("PITX_FTP_PORT", "2121")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	servers := cfg.ServersFor(FlowLeads)
	var names []string
	for _, s := range servers {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"NMKT", "PITX", "PAN"}) {
		t.Fatalf("unexpected destinations %v", names)
	}
	if servers[0] != (FTPServer{Name: "NMKT", Host: "ftp.nmkt.local", Port: 21, Username: "bcp", Password: "secret"}) {
		t.Fatalf("unexpected NMKT server %+v", servers[0])
	}
	if servers[1].Port != 2121 || servers[1].Username != "" {
		t.Fatalf("unexpected PITX server %+v", servers[1])
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "bad port", env: map[string]string{"PAN_FTP_PORT": "twenty-one"}, want: "PAN_FTP_PORT"},
		{name: "bad duration", yaml: "session:\n  max_age: soon\n", want: "invalid duration"},
		{name: "unknown destination", yaml: "flows:\n  ameyo:\n    base_path: /x\n    destinations: [SFTP]\n", want: "unknown destination"},
		{name: "duplicate environment", yaml: "environments:\n  - {name: ENV1, port: 1}\n  - {name: env1, port: 2}\n", want: "twice"},
		{name: "bad email pattern", yaml: "session:\n  email_pattern: \"[\"\n", want: "email_pattern"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.yaml)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q; got %v", tc.want, err)
			}
		})
	}
}
