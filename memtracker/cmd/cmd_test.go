package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtracker/datarecording"
	"github.com/sarchlab/memtracker/ledger"
	"github.com/sarchlab/memtracker/narration"
	"github.com/sarchlab/memtracker/tracing"
)

var _ = Describe("Commands", func() {
	var (
		dir     string
		envFile string
	)

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer

		root := NewRootCommand()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--no-color", "--env-file", envFile}, args...))

		err := root.Execute()

		return out.String(), err
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		envFile = filepath.Join(dir, "missing.env")
	})

	It("should list the built-in scenarios", func() {
		out, err := execute("list")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("borrowing\ncloning\nownership\npatterns\n"))
	})

	It("should narrate a scenario", func() {
		out, err := execute("run", "ownership", "--bar-width", "4", "--recent", "1")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== ownership ===\n"))
		Expect(out).To(ContainSubstring("-- s1 owns a heap buffer\n"))
		Expect(out).To(ContainSubstring("s1 [####] 5 bytes (String)\n"))
		Expect(out).To(ContainSubstring("s2 [####] 5 bytes (String)\n"))
		Expect(out).To(ContainSubstring("recent:\n"))
		Expect(out).To(ContainSubstring(
			`#1 Allocate String @ s1 (5 bytes): let s1 = String::from("hello")`))
		Expect(out).To(ContainSubstring("operations:          5\n"))
		Expect(out).To(ContainSubstring("peak concurrent:     5 bytes\n"))
		Expect(out).To(ContainSubstring("current concurrent:  0 bytes\n"))
	})

	It("should refuse unknown scenarios before running anything", func() {
		out, err := execute("run", "ownership", "nope")

		Expect(err).To(MatchError(ContainSubstring(`unknown scenario "nope"`)))
		Expect(out).NotTo(ContainSubstring("=== ownership ==="))
	})

	It("should record a trace and show it back", func() {
		db := filepath.Join(dir, "trace")

		_, err := execute("run", "ownership", "cloning", "--record", db)
		Expect(err).NotTo(HaveOccurred())

		out, err := execute("trace", "show", db+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== scenario 0 ===\n"))
		Expect(out).To(ContainSubstring("=== scenario 1 ===\n"))
		Expect(out).To(ContainSubstring("#2 Move String @ s1 -> s2 (5 bytes): let s2 = s1"))
		Expect(out).To(ContainSubstring("#2 Clone String @ a -> b (11 bytes)"))
		Expect(out).To(ContainSubstring("peak concurrent:     22 bytes\n"))

		out, err = execute("trace", "show", db+".sqlite3", "--scenario", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(ContainSubstring("=== scenario 0 ==="))
		Expect(out).To(ContainSubstring("=== scenario 1 ===\n"))
	})

	It("should write a JSON trace", func() {
		jsonFile := filepath.Join(dir, "trace.json")

		_, err := execute("run", "borrowing", "--json", jsonFile)
		Expect(err).NotTo(HaveOccurred())

		b, err := os.ReadFile(jsonFile)
		Expect(err).NotTo(HaveOccurred())

		var entries []tracing.JSONEntry
		Expect(json.Unmarshal(b, &entries)).To(Succeed())
		Expect(entries).NotTo(BeEmpty())
		Expect(entries[0].Record.Kind).To(Equal(ledger.KindAllocate))
		Expect(entries[0].Record.Location).To(Equal("data"))
	})

	It("should close the traces when a scenario fails", func() {
		jsonFile := filepath.Join(dir, "failed.json")
		db := filepath.Join(dir, "failed")

		registry := narration.NewRegistry()
		registry.Register(narration.NewNarrator("broken",
			func(t *ledger.Tracker, _ narration.Observer) error {
				_, _ = t.Allocate("a", "T", 4)
				return errors.New("script failed")
			}))

		var out bytes.Buffer
		err := runScenarios(&out, Config{
			BarWidth:  40,
			TraceDB:   db,
			JSONTrace: jsonFile,
		}, registry, nil)
		Expect(err).To(MatchError(ContainSubstring("script failed")))

		b, err := os.ReadFile(jsonFile)
		Expect(err).NotTo(HaveOccurred())

		var entries []tracing.JSONEntry
		Expect(json.Unmarshal(b, &entries)).To(Succeed())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Record.Location).To(Equal("a"))

		reader := datarecording.NewReader(db + ".sqlite3")
		defer reader.Close()
		reader.MapTable(datarecording.ExecInfoTable, datarecording.ExecInfo{})

		_, count, err := reader.Query(context.Background(),
			datarecording.ExecInfoTable, datarecording.QueryParams{
				Where: "Property = ?",
				Args:  []any{"End Time"},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))

		out.Reset()
		Expect(showTrace(context.Background(), &out, db+".sqlite3", nil)).
			To(Succeed())
		Expect(out.String()).To(ContainSubstring("#1 Allocate T @ a (4 bytes)"))
		Expect(out.String()).To(ContainSubstring("current concurrent:  4 bytes\n"))
	})

	It("should fail to show a missing trace", func() {
		_, err := execute("trace", "show", filepath.Join(dir, "none.sqlite3"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadConfig", func() {
	unset := func(keys ...string) {
		for _, k := range keys {
			k := k
			old, had := os.LookupEnv(k)
			Expect(os.Unsetenv(k)).To(Succeed())

			DeferCleanup(func() {
				if had {
					os.Setenv(k, old)
				} else {
					os.Unsetenv(k)
				}
			})
		}
	}

	BeforeEach(func() {
		unset("MEMTRACKER_BAR_WIDTH", "MEMTRACKER_RECENT", "MEMTRACKER_TRACE_DB")
	})

	It("should use defaults without a file", func() {
		cfg, err := LoadConfig(filepath.Join(GinkgoT().TempDir(), "none.env"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BarWidth).To(Equal(40))
		Expect(cfg.Recent).To(Equal(5))
		Expect(cfg.TraceDB).To(BeEmpty())
	})

	It("should read the env file", func() {
		envFile := filepath.Join(GinkgoT().TempDir(), ".env")
		Expect(os.WriteFile(envFile,
			[]byte("MEMTRACKER_BAR_WIDTH=12\nMEMTRACKER_TRACE_DB=out\n"),
			0o600)).To(Succeed())

		cfg, err := LoadConfig(envFile)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BarWidth).To(Equal(12))
		Expect(cfg.TraceDB).To(Equal("out"))
	})

	It("should prefer variables already set", func() {
		envFile := filepath.Join(GinkgoT().TempDir(), ".env")
		Expect(os.WriteFile(envFile,
			[]byte("MEMTRACKER_RECENT=9\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("MEMTRACKER_RECENT", "2")

		cfg, err := LoadConfig(envFile)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Recent).To(Equal(2))
	})

	It("should reject malformed values", func() {
		GinkgoT().Setenv("MEMTRACKER_BAR_WIDTH", "wide")

		_, err := LoadConfig("")

		Expect(err).To(HaveOccurred())
	})
})
