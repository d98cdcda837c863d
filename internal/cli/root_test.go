package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"bandwatch/internal/version"
)

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"run", "watch", "show", "export", "simulate-alert", "migrate", "prune", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if cmd.Name() != name {
			t.Fatalf("expected command %s, got %s", name, cmd.Name())
		}
	}
}

func TestVersionCommandWritesBuildInfo(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if got := buf.String(); got != version.String() {
		t.Fatalf("unexpected output %q", got)
	}
	if !strings.Contains(buf.String(), version.Version) {
		t.Fatalf("version missing from output %q", buf.String())
	}
}

func TestExportRequiresSymbol(t *testing.T) {
	flag := exportCmd.Flags().Lookup("symbol")
	if flag == nil {
		t.Fatal("symbol flag not registered")
	}
	if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
		t.Fatal("symbol flag should be required")
	}
}
