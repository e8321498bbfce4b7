package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/orgagenda/internal/apperr"
	"github.com/starford/orgagenda/internal/org"
	"github.com/starford/orgagenda/internal/testutil"
)

var buildTime = time.Date(2023, 6, 14, 8, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	dir, _ := testutil.TestVault(t, files)
	cfg := NewDefaultConfig()
	cfg.Vault.Path = dir
	cfg.Agenda.Timezone = "UTC"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func testOpts(cfg *Config, out *bytes.Buffer) []Option {
	return []Option{
		WithConfig(cfg),
		WithOutput(out),
		WithLogger(testutil.Logger()),
		WithClock(org.ClockFunc(func() time.Time { return buildTime })),
	}
}

var commandVault = map[string]string{
	"work.org":      "* TODO Call Bob\n2023-06-14 Wed 09:30\n\n* Release 2023-07-03 Mon\n",
	"home/plan.org": "* Dentist 2023-06-01 Thu 16:00\n* Someday\n",
}

func TestPrintAgenda_Text(t *testing.T) {
	cfg := testConfig(t, commandVault)
	var out bytes.Buffer

	if err := PrintAgenda(context.Background(), FormatText, testOpts(cfg, &out)...); err != nil {
		t.Fatalf("PrintAgenda: %v", err)
	}
	want := org.Header +
		"plan.org:1: 2023-06-01 16:00 => Dentist 2023-06-01 Thu 16:00\n\n" +
		"now => 2023-06-14 08:00" + strings.Repeat("-", 80) + "\n" +
		"work.org:1: => TODO Call Bob\n2023-06-14 Wed 09:30\n\n" +
		"work.org:4: 2023-07-03 => Release 2023-07-03 Mon\n\n"
	if out.String() != want {
		t.Errorf("agenda =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestPrintAgenda_SelectedFilesOrder(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"a.org": "* Alpha 2023-06-20 Tue\n",
		"b.org": "* Beta 2023-06-20 Tue\n",
		"c.org": "* Gamma 2023-06-20 Tue\n",
	})
	cfg.Vault.Files = []string{"b.org", "a.org"}
	off := false
	cfg.Agenda.NowEntry = &off
	var out bytes.Buffer

	if err := PrintAgenda(context.Background(), FormatText, testOpts(cfg, &out)...); err != nil {
		t.Fatalf("PrintAgenda: %v", err)
	}
	want := org.Header +
		"b.org:1: 2023-06-20 => Beta 2023-06-20 Tue\n\n" +
		"a.org:1: 2023-06-20 => Alpha 2023-06-20 Tue\n\n"
	if out.String() != want {
		t.Errorf("agenda =\n%q\nwant\n%q", out.String(), want)
	}
}

func TestPrintAgenda_FailPolicy(t *testing.T) {
	cfg := testConfig(t, map[string]string{"bad.org": "* broken 2023-02-30 Thu\n"})
	cfg.Agenda.OnMalformed = OnMalformedFail
	var out bytes.Buffer

	err := PrintAgenda(context.Background(), FormatText, testOpts(cfg, &out)...)
	if !errors.Is(err, org.ErrMalformedTimestamp) {
		t.Fatalf("err = %v, want malformed timestamp", err)
	}
	if out.Len() != 0 {
		t.Errorf("partial output written: %q", out.String())
	}
}

func TestPrintAgenda_JSON(t *testing.T) {
	cfg := testConfig(t, commandVault)
	var out bytes.Buffer

	if err := PrintAgenda(context.Background(), FormatJSON, testOpts(cfg, &out)...); err != nil {
		t.Fatalf("PrintAgenda: %v", err)
	}
	var snap struct {
		ID      string   `json:"id"`
		Lines   []string `json:"lines"`
		BuiltAt string   `json:"built_at"`
	}
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.ID == "" || len(snap.Lines) != 4 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPrintAgenda_UnknownFormat(t *testing.T) {
	cfg := testConfig(t, commandVault)
	var out bytes.Buffer
	if err := PrintAgenda(context.Background(), "yaml", testOpts(cfg, &out)...); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPrintAgenda_RequiresConfig(t *testing.T) {
	if err := PrintAgenda(context.Background(), FormatText); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestJump(t *testing.T) {
	cfg := testConfig(t, commandVault)
	var out bytes.Buffer

	err := Jump(context.Background(), "plan.org:1: 2023-06-01 16:00 => Dentist", testOpts(cfg, &out)...)
	if err != nil {
		t.Fatalf("Jump: %v", err)
	}
	if out.String() != "home/plan.org:1\n" {
		t.Errorf("jump = %q", out.String())
	}

	err = Jump(context.Background(), "missing.org:3: => x", testOpts(cfg, &out)...)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
