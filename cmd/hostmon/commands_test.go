package main

import (
	"bytes"
	"strings"
	"testing"

	"hostmon/pkg/zabbix"

	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("hostmon %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	if !strings.HasPrefix(out, "hostmon "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestItemsCommand(t *testing.T) {
	out := execute(t, "items", "--disk-path", "/data", "--zabbix-host", "web-1")

	var doc struct {
		Host  string              `yaml:"host"`
		Items []zabbix.MetricItem `yaml:"items"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("items output is not YAML: %v\n%s", err, out)
	}
	if doc.Host != "web-1" {
		t.Errorf("host = %q", doc.Host)
	}

	keys := map[string]bool{}
	for _, item := range doc.Items {
		keys[item.Key] = true
	}
	for _, want := range []string{zabbix.KeyCPUUtil, zabbix.DiskUtilKey("/data"), zabbix.KeyNetInRate} {
		if !keys[want] {
			t.Errorf("item %s missing", want)
		}
	}
}
